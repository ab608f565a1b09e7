// Package assembly merges user, reference and retrieved text into one bounded,
// labeled context for the prompt builder.
package assembly

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"reportrag/internal/config"
	"reportrag/internal/ingest"
	"reportrag/internal/models"
)

// ErrorMarker replaces the context when assembly fails.
const ErrorMarker = "Error: Unable to retrieve relevant context"

const contextHeader = "\n\nRelevant Context:\n"

// Retriever is the slice of the vector index the assembler needs.
type Retriever interface {
	GetRelevantChunks(ctx context.Context, query string, k int) ([]string, error)
}

type Options struct {
	RetrievalK   int
	PriorityK    int
	UserCap      int
	ReferenceCap int
	RawPrefix    int
	ReferenceDir string
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		RetrievalK:   cfg.RetrievalK,
		PriorityK:    cfg.PriorityK,
		UserCap:      cfg.UserCap,
		ReferenceCap: cfg.ReferenceCap,
		RawPrefix:    cfg.RawPrefix,
		ReferenceDir: cfg.ReferenceDir,
	}
}

// Sources describes what one agent can draw on for a query.
type Sources struct {
	// Loaded holds every text loaded for the agent, in load order.
	Loaded []string
	// PriorityFiles switches on priority mode when non-empty.
	PriorityFiles []string
	// SkipReference keeps the reference directory out of priority mode.
	SkipReference bool
	Vectorized    bool
	Index         Retriever
}

type Assembler struct {
	opts   Options
	loader *ingest.Loader
	logger *zap.Logger
}

func New(opts Options, loader *ingest.Loader, logger *zap.Logger) *Assembler {
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = 4
	}
	if opts.PriorityK <= 0 {
		opts.PriorityK = 500
	}
	if opts.UserCap <= 0 {
		opts.UserCap = 250
	}
	if opts.ReferenceCap <= 0 {
		opts.ReferenceCap = 250
	}
	if opts.RawPrefix <= 0 {
		opts.RawPrefix = 15
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = ingest.NewLoader(logger)
	}
	return &Assembler{opts: opts, loader: loader, logger: logger}
}

// Assemble builds the bundle for query. Sections always come out in the order
// user documents, reference documents, then search hits or the loaded prefix.
// Unreadable files are skipped; only a failed similarity search is an error.
func (a *Assembler) Assemble(ctx context.Context, query string, src Sources) (models.ContextBundle, error) {
	var bundle models.ContextBundle
	priority := len(src.PriorityFiles) > 0

	if priority {
		user := capTexts(a.loader.LoadBatch(src.PriorityFiles), a.opts.UserCap)
		bundle.Sections = appendSection(bundle.Sections, models.SectionUser, user)
		if !src.SkipReference {
			refs := capTexts(a.referenceTexts(), a.opts.ReferenceCap)
			bundle.Sections = appendSection(bundle.Sections, models.SectionReference, refs)
		}
	}

	if src.Vectorized && src.Index != nil {
		k := a.opts.RetrievalK
		if priority {
			k = a.opts.PriorityK
		}
		hits, err := src.Index.GetRelevantChunks(ctx, query, k)
		if err != nil {
			return models.ContextBundle{}, fmt.Errorf("similarity search: %w", err)
		}
		bundle.Sections = appendSection(bundle.Sections, models.SectionVector, hits)
		a.logger.Info("context retrieved", zap.Int("hits", len(hits)), zap.Int("k", k), zap.Bool("priority", priority))
	} else {
		prefix := capTexts(src.Loaded, a.opts.RawPrefix)
		bundle.Sections = appendSection(bundle.Sections, models.SectionLoaded, prefix)
		a.logger.Info("context from loaded texts", zap.Int("texts", len(prefix)), zap.Bool("priority", priority))
	}

	if len(bundle.Sections) > models.MaxSections {
		bundle.Sections = bundle.Sections[:models.MaxSections]
	}
	return bundle, nil
}

// Context renders the assembled bundle for a prompt. It never fails: any error
// is logged and replaced with ErrorMarker.
func (a *Assembler) Context(ctx context.Context, query string, src Sources) string {
	bundle, err := a.Assemble(ctx, query, src)
	if err != nil {
		a.logger.Error("assemble context", zap.Error(err))
		return ErrorMarker
	}
	return contextHeader + bundle.String()
}

func (a *Assembler) referenceTexts() []string {
	if a.opts.ReferenceDir == "" {
		return nil
	}
	paths, err := ingest.ListSupported(a.opts.ReferenceDir)
	if err != nil {
		a.logger.Warn("list reference documents", zap.String("dir", a.opts.ReferenceDir), zap.Error(err))
		return nil
	}
	return a.loader.LoadBatch(paths)
}

func appendSection(sections []models.ContextSection, label string, chunks []string) []models.ContextSection {
	if len(chunks) == 0 {
		return sections
	}
	return append(sections, models.ContextSection{Label: label, Chunks: chunks})
}

func capTexts(texts []string, n int) []string {
	if len(texts) <= n {
		return texts
	}
	return texts[:n]
}
