package main

import (
	"context"
	"log"
	"net/http"
	"time"

	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"reportrag/internal/api"
	"reportrag/internal/app"
	"reportrag/internal/config"
	"reportrag/internal/logging"
	"reportrag/internal/telemetry"
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

	flush, err := telemetry.Init(telemetry.Config{DSN: cfg.SentryDSN, Environment: cfg.SentryEnvironment}, logger)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}
	defer a.Close()

	opts := api.Options{}
	if a.Audit != nil {
		opts.Stats = a.Audit
	}
	if cfg.HasTemporal() {
		c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			logger.Warn("temporal unavailable, batch scoring disabled", zap.String("address", cfg.TemporalAddress), zap.Error(err))
		} else {
			defer c.Close()
			opts.Temporal = c
		}
	}

	h := api.NewServer(cfg, a.Router, opts, logger)
	logger.Info("reportrag api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("llm_fallbacks", cfg.LLMFallbacks),
		zap.String("embed_providers", cfg.EmbedProviders),
		zap.String("vector_backend", cfg.VectorBackend),
	)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}
