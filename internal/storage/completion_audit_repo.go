package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"reportrag/internal/providers"
)

type CompletionAuditRepo struct {
	db *DB
}

func NewCompletionAuditRepo(db *DB) *CompletionAuditRepo {
	return &CompletionAuditRepo{db: db}
}

func (r *CompletionAuditRepo) RecordCompletion(ctx context.Context, a providers.CompletionAudit) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO completion_calls(call_id, operation, provider_name, model, status, error_type, error_message, latency_ms, prompt_chars, response_chars)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), $8, $9, $10)`,
		uuid.New(), a.Operation, a.Provider, a.Model, a.Status, string(a.ErrorType), a.Error, a.LatencyMS, a.PromptChars, a.ResponseChars)
	if err != nil {
		return fmt.Errorf("insert completion call: %w", err)
	}
	return nil
}

type ProviderStat struct {
	Provider string `json:"provider"`
	Calls    int64  `json:"calls"`
	Failures int64  `json:"failures"`
}

// ProviderStats summarizes recorded completion attempts per provider.
func (r *CompletionAuditRepo) ProviderStats(ctx context.Context) ([]ProviderStat, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT provider_name, COUNT(*), COUNT(*) FILTER (WHERE status <> 'ok')
FROM completion_calls
GROUP BY provider_name
ORDER BY provider_name`)
	if err != nil {
		return nil, fmt.Errorf("query provider stats: %w", err)
	}
	defer rows.Close()
	out := make([]ProviderStat, 0, 4)
	for rows.Next() {
		var s ProviderStat
		if err := rows.Scan(&s.Provider, &s.Calls, &s.Failures); err != nil {
			return nil, fmt.Errorf("scan provider stat: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
