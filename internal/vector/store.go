package vector

import (
	"context"
	"sync"

	"reportrag/internal/models"
)

// Store persists embedded chunks for one index and answers similarity
// queries. Stores are append-only.
type Store interface {
	// Exists reports whether any chunk was ever persisted.
	Exists(ctx context.Context) (bool, error)
	Append(ctx context.Context, chunks []models.EmbeddedChunk) error
	Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error)
}

// MemoryStore keeps chunks in process. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []models.EmbeddedChunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Exists(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks) > 0, nil
}

func (m *MemoryStore) Append(ctx context.Context, chunks []models.EmbeddedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return RankTopK(m.chunks, query, k), nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
