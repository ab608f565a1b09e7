package agents

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"reportrag/internal/ingest"
	"reportrag/internal/models"
	"reportrag/internal/prompts"
	"reportrag/internal/providers"
)

const TimestampLayout = "2006-01-02 15:04:05"

type Scorer struct {
	loader    *ingest.Loader
	completer Completer
	criteria  *models.ScoringCriteria
	maxChars  int
	logger    *zap.Logger
	now       func() time.Time
}

func NewScorer(loader *ingest.Loader, completer Completer, criteria *models.ScoringCriteria, maxChars int, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = ingest.NewLoader(logger)
	}
	return &Scorer{
		loader:    loader,
		completer: completer,
		criteria:  criteria,
		maxChars:  maxChars,
		logger:    logger.With(zap.String("agent", ScoringAgent)),
		now:       time.Now,
	}
}

func (s *Scorer) Criteria() *models.ScoringCriteria { return s.criteria }

// ScoreDocument scores one file against the loaded criteria. The returned
// result is always populated; on failure it is an error record and err says
// why.
func (s *Scorer) ScoreDocument(ctx context.Context, path string) (models.ScoreResult, error) {
	result := models.ScoreResult{FilePath: path, FileName: filepath.Base(path)}

	segments, err := s.loader.Load(path)
	if err != nil {
		return s.fail(result, fmt.Errorf("load document: %w", err))
	}
	prompt, err := prompts.Scoring(strings.Join(segments, "\n"), s.criteria, s.maxChars)
	if err != nil {
		return s.fail(result, err)
	}
	resp, info, err := s.completer.Complete(ctx, providers.CompletionRequest{
		Operation: "scoring",
		System:    prompts.ScoringSystem,
		Prompt:    prompt,
	})
	if err != nil {
		return s.fail(result, err)
	}

	result.Scoring = resp.Text
	result.Timestamp = s.now().Format(TimestampLayout)
	s.logger.Info("document scored", zap.String("file", result.FileName), zap.String("provider", info.Name), zap.Int("prompt_chars", len(prompt)))
	return result, nil
}

func (s *Scorer) fail(result models.ScoreResult, err error) (models.ScoreResult, error) {
	s.logger.Error("score document", zap.String("file", result.FilePath), zap.Error(err))
	result.Error = err.Error()
	return result, err
}

// FormatReport renders scoring results as one markdown report, in input order.
func FormatReport(results []models.ScoreResult) string {
	if len(results) == 0 {
		return "No scoring results available."
	}
	lines := make([]string, 0, len(results)*4)
	for _, r := range results {
		name := r.FileName
		if name == "" {
			name = "document"
		}
		if r.Failed() {
			lines = append(lines, fmt.Sprintf("Error scoring %s: %s", name, r.Error))
			continue
		}
		ts := r.Timestamp
		if ts == "" {
			ts = "N/A"
		}
		body := r.Scoring
		if body == "" {
			body = "No detailed scoring available."
		}
		lines = append(lines, "## Scoring Results for "+name, "Timestamp: "+ts, "", body)
	}
	return strings.Join(lines, "\n")
}
