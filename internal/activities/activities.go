package activities

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"reportrag/internal/agents"
	"reportrag/internal/config"
	"reportrag/internal/ingest"
	"reportrag/internal/logging"
	"reportrag/internal/models"
	"reportrag/internal/providers"
	"reportrag/internal/util"
)

// DocumentScorer is satisfied by *router.Router.
type DocumentScorer interface {
	ScoreDocumentResult(ctx context.Context, path string) (models.ScoreResult, error)
}

type Activities struct {
	cfg    config.Config
	scorer DocumentScorer
	logger *zap.Logger
}

func New(cfg config.Config, scorer DocumentScorer, logger *zap.Logger) *Activities {
	logger = logging.OrNop(logger)
	return &Activities{cfg: cfg, scorer: scorer, logger: logger}
}

// ListDocumentsActivity returns the supported explicit paths, or every
// supported file under InputDir when no paths are given.
func (a *Activities) ListDocumentsActivity(ctx context.Context, in ListDocumentsInput) (ListDocumentsOutput, error) {
	_ = ctx
	if len(in.Paths) > 0 {
		return ListDocumentsOutput{Paths: models.NewDocumentSet(models.ProvenanceUser, in.Paths).Paths()}, nil
	}
	paths, err := ingest.ListSupported(in.InputDir)
	if err != nil {
		return ListDocumentsOutput{}, temporal.NewNonRetryableApplicationError("list documents", "InvalidInput", err)
	}
	return ListDocumentsOutput{Paths: paths}, nil
}

// ScoreDocumentActivity scores one file. Unreadable files come back as error
// records; provider failures are returned so Temporal can retry them, unless
// every provider failed permanently.
func (a *Activities) ScoreDocumentActivity(ctx context.Context, in ScoreDocumentInput) (ScoreDocumentOutput, error) {
	res, err := a.scorer.ScoreDocumentResult(ctx, in.Path)
	if err == nil || !errors.Is(err, models.ErrProvider) {
		return ScoreDocumentOutput{Result: res}, nil
	}
	a.logger.Warn("scoring provider failure", zap.String("batch_id", in.BatchID), zap.String("path", in.Path), zap.Error(err))
	if permanentOnly(err) {
		return ScoreDocumentOutput{}, temporal.NewNonRetryableApplicationError("score document", "ProviderPermanent", err)
	}
	return ScoreDocumentOutput{}, err
}

func permanentOnly(err error) bool {
	var perr *providers.ProviderError
	if !errors.As(err, &perr) || len(perr.Attempts) == 0 {
		return false
	}
	for _, at := range perr.Attempts {
		if at.Type != providers.ErrorPermanent && at.Type != providers.ErrorContext {
			return false
		}
	}
	return true
}

// WriteScoreReportActivity persists the combined markdown report and the raw
// results under <data_out>/scores/<batch_id>/.
func (a *Activities) WriteScoreReportActivity(ctx context.Context, in WriteScoreReportInput) (WriteScoreReportOutput, error) {
	_ = ctx
	if in.BatchID == "" {
		return WriteScoreReportOutput{}, temporal.NewNonRetryableApplicationError("write score report", "InvalidInput", errors.New("batch id is required"))
	}
	dir := filepath.Join(a.cfg.DataOutRoot, "scores", in.BatchID)
	out := WriteScoreReportOutput{
		ReportPath:  filepath.Join(dir, "report.md"),
		ResultsPath: filepath.Join(dir, "results.json"),
	}
	if err := util.WriteTextAtomic(out.ReportPath, agents.FormatReport(in.Results)+"\n"); err != nil {
		return WriteScoreReportOutput{}, fmt.Errorf("write report: %w", err)
	}
	if err := util.WriteJSONAtomic(out.ResultsPath, in.Results); err != nil {
		return WriteScoreReportOutput{}, fmt.Errorf("write results: %w", err)
	}
	a.logger.Info("score report written", zap.String("batch_id", in.BatchID), zap.Int("documents", len(in.Results)), zap.String("path", out.ReportPath))
	return out, nil
}
