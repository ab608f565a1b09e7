// Package vector wraps embedding plus similarity search behind a small
// append-only index.
package vector

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"reportrag/internal/models"
	"reportrag/internal/providers"
	"reportrag/internal/util"
)

const embedBatchSize = 64

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	// DefaultK applies when a search asks for k <= 0.
	DefaultK  int
	Dimension int
}

// Index is safe for concurrent use; calls are serialized.
type Index struct {
	mu          sync.Mutex
	store       Store
	embedder    providers.EmbeddingProvider
	opts        Options
	logger      *zap.Logger
	initialized bool
}

func NewIndex(store Store, embedder providers.EmbeddingProvider, opts Options, logger *zap.Logger) *Index {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = util.DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = util.DefaultChunkOverlap
	}
	if opts.DefaultK <= 0 {
		opts.DefaultK = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{store: store, embedder: embedder, opts: opts, logger: logger}
}

// CreateOrLoad reports whether persisted state was found. Without it the index
// stays empty until the first AddTexts. Repeated calls have no side effects.
func (x *Index) CreateOrLoad(ctx context.Context) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	exists, err := x.store.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	if exists {
		x.initialized = true
	}
	x.logger.Info("vector index opened", zap.Bool("loaded", exists))
	return exists, nil
}

// AddTexts joins texts with newlines, windows the result, embeds every window
// and persists them before returning. It returns the number of windows added.
func (x *Index) AddTexts(ctx context.Context, texts []string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	windows := util.SplitText(strings.Join(texts, "\n"), x.opts.ChunkSize, x.opts.ChunkOverlap)
	if len(windows) == 0 {
		return 0, nil
	}
	chunks := make([]models.EmbeddedChunk, 0, len(windows))
	for start := 0; start < len(windows); start += embedBatchSize {
		end := min(start+embedBatchSize, len(windows))
		vectors, _, err := x.embedder.Embed(ctx, providers.EmbedRequest{
			Operation: "index",
			Inputs:    windows[start:end],
			Dimension: x.opts.Dimension,
		})
		if err != nil {
			return 0, fmt.Errorf("embed windows: %w", err)
		}
		if len(vectors) != end-start {
			return 0, fmt.Errorf("embed windows: got %d vectors for %d windows", len(vectors), end-start)
		}
		for i, v := range vectors {
			chunks = append(chunks, models.EmbeddedChunk{Text: windows[start+i], Embedding: v})
		}
	}
	if err := x.store.Append(ctx, chunks); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	x.initialized = true
	x.logger.Info("vector index appended", zap.Int("texts", len(texts)), zap.Int("windows", len(chunks)))
	return len(chunks), nil
}

// GetRelevantChunks returns up to k windows most similar to query.
func (x *Index) GetRelevantChunks(ctx context.Context, query string, k int) ([]string, error) {
	scored, err := x.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Text)
	}
	return out, nil
}

func (x *Index) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.initialized {
		return nil, models.ErrNotInitialized
	}
	if k <= 0 {
		k = x.opts.DefaultK
	}
	vectors, _, err := x.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "query",
		Inputs:    []string{query},
		Dimension: x.opts.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: no vector returned")
	}
	results, err := x.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return results, nil
}

func (x *Index) Initialized() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.initialized
}

// Close releases the backing store when it holds resources.
func (x *Index) Close() error {
	if c, ok := x.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
