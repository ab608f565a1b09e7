package main

import (
	"context"
	"log"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"reportrag/internal/activities"
	"reportrag/internal/app"
	"reportrag/internal/config"
	"reportrag/internal/logging"
	"reportrag/internal/telemetry"
	"reportrag/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	if !cfg.HasTemporal() {
		logger.Fatal("REPORTRAG_TEMPORAL_ADDRESS is required for the worker")
	}

	flush, err := telemetry.Init(telemetry.Config{DSN: cfg.SentryDSN, Environment: cfg.SentryEnvironment}, logger)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("dial temporal", zap.Error(err))
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}
	defer a.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, a.Router, logger.Named("activities")))

	logger.Info("reportrag worker listening",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("embed_providers", cfg.EmbedProviders),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
