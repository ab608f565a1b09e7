package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pgvector/pgvector-go"
	_ "modernc.org/sqlite"

	"reportrag/internal/models"
	"reportrag/internal/util"
)

const sqliteFile = "index.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	index_name   TEXT NOT NULL,
	content      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	embedding    TEXT NOT NULL,
	created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_index_name ON chunks(index_name);
`

// SQLiteStore persists chunks in <dir>/index.db. The file is created on the
// first Append, so probing an empty directory leaves it untouched. Vectors are
// stored in pgvector's text form and ranked in process.
type SQLiteStore struct {
	dir  string
	name string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteStore(dir, indexName string) *SQLiteStore {
	if indexName == "" {
		indexName = "default"
	}
	return &SQLiteStore{dir: dir, name: indexName}
}

func (s *SQLiteStore) Path() string {
	return filepath.Join(s.dir, sqliteFile)
}

func (s *SQLiteStore) open(create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if !create {
		if _, err := os.Stat(s.Path()); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
	}
	if err := util.EnsureDir(s.dir); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", s.Path()+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	s.db = db
	return db, nil
}

func (s *SQLiteStore) Exists(ctx context.Context) (bool, error) {
	db, err := s.open(false)
	if err != nil || db == nil {
		return false, err
	}
	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM chunks WHERE index_name = ?)`, s.name).Scan(&exists); err != nil {
		return false, fmt.Errorf("probe sqlite index: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) Append(ctx context.Context, chunks []models.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	db, err := s.open(true)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx append chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (index_name, content, content_hash, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare append chunks: %w", err)
	}
	defer stmt.Close()
	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, s.name, c.Text, util.SHA256Hex([]byte(c.Text)), pgvector.NewVector(c.Embedding)); err != nil {
			return fmt.Errorf("append chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	db, err := s.open(false)
	if err != nil || db == nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT content, embedding FROM chunks WHERE index_name = ? ORDER BY id`, s.name)
	if err != nil {
		return nil, fmt.Errorf("query sqlite chunks: %w", err)
	}
	defer rows.Close()
	all := make([]models.EmbeddedChunk, 0, 256)
	for rows.Next() {
		var (
			text string
			vec  pgvector.Vector
		)
		if err := rows.Scan(&text, &vec); err != nil {
			return nil, fmt.Errorf("scan sqlite chunk: %w", err)
		}
		all = append(all, models.EmbeddedChunk{Text: text, Embedding: vec.Slice()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sqlite chunks: %w", err)
	}
	return RankTopK(all, query, k), nil
}

// Count returns the number of chunks stored for this index.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	db, err := s.open(false)
	if err != nil || db == nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE index_name = ?`, s.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sqlite chunks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
