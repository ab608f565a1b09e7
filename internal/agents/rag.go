// Package agents holds the document-grounded agents the router dispatches to.
package agents

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"reportrag/internal/assembly"
	"reportrag/internal/ingest"
	"reportrag/internal/models"
	"reportrag/internal/prompts"
	"reportrag/internal/providers"
	"reportrag/internal/vector"
)

const (
	AnalysisAgent = "rag_assistant"
	ExploreAgent  = "explore_agent"
	ScoringAgent  = "scoring_agent"
)

// DefaultHistoryLimit is the number of explore turns replayed into prompts.
const DefaultHistoryLimit = 5

// Completer is satisfied by *providers.Manager.
type Completer interface {
	Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, providers.ProviderInfo, error)
}

type RAGConfig struct {
	Name string
	// Explore restricts the agent to user documents and keeps history.
	Explore      bool
	Index        *vector.Index
	Metrics      *models.MetricsSet
	HistoryLimit int
}

// RAGAgent answers queries from assembled context. Calls are serialized.
type RAGAgent struct {
	mu        sync.Mutex
	cfg       RAGConfig
	assembler *assembly.Assembler
	loader    *ingest.Loader
	completer Completer
	logger    *zap.Logger

	loaded    []string
	priority  []string
	vectorize bool
	history   []models.Turn
}

func NewRAGAgent(cfg RAGConfig, assembler *assembly.Assembler, loader *ingest.Loader, completer Completer, logger *zap.Logger) *RAGAgent {
	if cfg.Name == "" {
		cfg.Name = AnalysisAgent
		if cfg.Explore {
			cfg.Name = ExploreAgent
		}
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = ingest.NewLoader(logger)
	}
	return &RAGAgent{
		cfg:       cfg,
		assembler: assembler,
		loader:    loader,
		completer: completer,
		logger:    logger.With(zap.String("agent", cfg.Name)),
	}
}

func (a *RAGAgent) Name() string { return a.cfg.Name }

// LoadDocuments reads paths best-effort and, when vectorize is set, indexes
// what was read. It fails only when nothing could be read or indexing fails.
func (a *RAGAgent) LoadDocuments(ctx context.Context, paths []string, vectorize bool) error {
	texts := a.loader.LoadBatch(paths)

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(texts) == 0 && len(paths) > 0 {
		return fmt.Errorf("%w: none of %d files could be read", models.ErrDocumentsNotLoaded, len(paths))
	}
	a.loaded = append(a.loaded, texts...)
	a.vectorize = vectorize
	if vectorize {
		if a.cfg.Index == nil {
			a.logger.Warn("vectorization requested without an index, using loaded texts")
			a.vectorize = false
		} else if _, err := a.cfg.Index.AddTexts(ctx, texts); err != nil {
			return err
		}
	}
	a.logger.Info("documents loaded", zap.Int("files", len(paths)), zap.Int("texts", len(texts)), zap.Bool("vectorized", a.vectorize))
	return nil
}

// SetPriorityFiles marks user requirement files to be placed first in every
// context.
func (a *RAGAgent) SetPriorityFiles(paths []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.priority = append([]string(nil), paths...)
}

func (a *RAGAgent) History() []models.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Turn(nil), a.history...)
}

// Process assembles context, renders the prompt and asks the completion
// providers. On failure the result still carries context, prompt and the
// error text.
func (a *RAGAgent) Process(ctx context.Context, query string) (models.QueryResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	src := assembly.Sources{
		Loaded:        a.loaded,
		PriorityFiles: a.priority,
		SkipReference: a.cfg.Explore,
		Vectorized:    a.vectorize || (len(a.loaded) == 0 && a.cfg.Index != nil && a.cfg.Index.Initialized()),
	}
	if a.cfg.Index != nil {
		src.Index = a.cfg.Index
	}
	contextText := a.assembler.Context(ctx, query, src)

	req := providers.CompletionRequest{Operation: "analysis", System: prompts.AnalysisSystem}
	if a.cfg.Explore {
		req.Operation = "explore"
		req.System = prompts.ExploreSystem
		req.Prompt = prompts.Explore(query, contextText, a.history)
	} else {
		req.Prompt = prompts.Analysis(query, contextText, a.cfg.Metrics)
	}

	result := models.QueryResult{Agent: a.cfg.Name, Query: query, Context: contextText, Prompt: req.Prompt}
	resp, info, err := a.completer.Complete(ctx, req)
	if err != nil {
		a.logger.Error("completion failed", zap.Error(err))
		result.Error = err.Error()
		return result, err
	}
	result.Answer = resp.Text
	result.Success = true
	a.logger.Info("query answered", zap.String("provider", info.Name), zap.String("model", info.Model), zap.Int("answer_chars", len(resp.Text)))

	if a.cfg.Explore {
		a.history = append(a.history, models.Turn{Query: query, Answer: resp.Text})
		if len(a.history) > a.cfg.HistoryLimit {
			a.history = a.history[len(a.history)-a.cfg.HistoryLimit:]
		}
	}
	return result, nil
}
