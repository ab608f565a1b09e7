// Package app wires configuration into the providers, stores and router shared
// by every binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"reportrag/internal/config"
	"reportrag/internal/criteria"
	"reportrag/internal/logging"
	"reportrag/internal/providers"
	"reportrag/internal/router"
	"reportrag/internal/storage"
	"reportrag/internal/vector"
)

type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Providers *providers.Manager
	// DB and Audit are nil unless Postgres is configured.
	DB     *storage.DB
	Audit  *storage.CompletionAuditRepo
	Router *router.Router

	store vector.Store
}

// New migrates and connects Postgres when configured, opens the analysis
// vector store and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	pm, err := providers.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("providers configured",
		zap.Strings("completion", refNames(pm.CompletionRefs())),
		zap.Strings("embedding", refNames(pm.EmbedRefs())))
	a := &App{Config: cfg, Logger: logger, Providers: pm}

	if cfg.HasPostgres() {
		if err := storage.Migrate(cfg.PostgresURL, logger); err != nil {
			return nil, err
		}
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Audit = storage.NewCompletionAuditRepo(db)
		pm.SetAuditor(a.Audit)
	}

	store, err := OpenStore(cfg, a.DB)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	r, err := router.New(ctx, cfg, router.Deps{
		Completer: pm,
		Embedder:  pm,
		Store:     store,
		Criteria:  criteria.LoadCriteria(cfg.CriteriaPath, logger),
		Metrics:   criteria.LoadMetrics(cfg.MetricsPath, logger),
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Router = r
	return a, nil
}

// OpenStore picks the vector store backend named by cfg.VectorBackend.
func OpenStore(cfg config.Config, db *storage.DB) (vector.Store, error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case "memory":
		return vector.NewMemoryStore(), nil
	case "postgres":
		if db == nil {
			return nil, errors.New("postgres vector backend needs a database connection")
		}
		return storage.NewChunkRepo(db, cfg.VectorIndexName), nil
	case "", "sqlite":
		return vector.NewSQLiteStore(cfg.VectorStorePath, cfg.VectorIndexName), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.VectorBackend)
	}
}

func refNames(refs []providers.ProviderRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Name)
	}
	return out
}

func (a *App) Close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Logger.Warn("close vector store", zap.Error(err))
		}
	}
	a.DB.Close()
}
