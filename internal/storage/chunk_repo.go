package storage

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"reportrag/internal/models"
	"reportrag/internal/util"
)

// ChunkRepo is a Postgres-backed vector store scoped to one index name.
type ChunkRepo struct {
	db        *DB
	indexName string
}

func NewChunkRepo(db *DB, indexName string) *ChunkRepo {
	if indexName == "" {
		indexName = "default"
	}
	return &ChunkRepo{db: db, indexName: indexName}
}

func (r *ChunkRepo) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vector_chunks WHERE index_name = $1)`, r.indexName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe vector chunks: %w", err)
	}
	return exists, nil
}

func (r *ChunkRepo) Append(ctx context.Context, chunks []models.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx append chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for i, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO vector_chunks (index_name, content, content_hash, embedding)
VALUES ($1, $2, $3, $4)`,
			r.indexName, c.Text, util.SHA256Hex([]byte(c.Text)), pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("append chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepo) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT content, 1 - (embedding <=> $2) AS score
FROM vector_chunks
WHERE index_name = $1
ORDER BY embedding <=> $2
LIMIT $3`, r.indexName, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	out := make([]models.ScoredChunk, 0, k)
	for rows.Next() {
		var c models.ScoredChunk
		if err := rows.Scan(&c.Text, &c.Score); err != nil {
			return nil, fmt.Errorf("scan chunk result: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM vector_chunks WHERE index_name = $1`, r.indexName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vector chunks: %w", err)
	}
	return n, nil
}
