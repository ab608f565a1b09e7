package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"reportrag/internal/models"
	"reportrag/internal/providers"
)

// startPostgres runs a pgvector container and returns its connection string.
// The test is skipped when Docker is unavailable.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "reportrag",
			"POSTGRES_PASSWORD": "reportrag",
			"POSTGRES_DB":       "reportrag",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://reportrag:reportrag@%s:%s/reportrag?sslmode=disable", host, port.Port())
}

func TestPostgresStoresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	dsn := startPostgres(ctx, t)

	require.NoError(t, Migrate(dsn, zaptest.NewLogger(t)))
	require.NoError(t, Migrate(dsn, nil), "second run must be a no-op")

	db, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	repo := NewChunkRepo(db, "reports")
	exists, err := repo.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, repo.Append(ctx, []models.EmbeddedChunk{
		{Text: "east", Embedding: []float32{1, 0, 0}},
		{Text: "north", Embedding: []float32{0, 1, 0}},
		{Text: "north-east", Embedding: []float32{0.7, 0.7, 0}},
	}))
	exists, err = repo.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	got, err := repo.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "east", got[0].Text)
	require.Equal(t, "north-east", got[1].Text)

	other := NewChunkRepo(db, "other")
	n, err := other.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	audit := NewCompletionAuditRepo(db)
	require.NoError(t, audit.RecordCompletion(ctx, providers.CompletionAudit{Operation: "analysis", Provider: "gemini", Status: "error", ErrorType: providers.ErrorRate, Error: "429"}))
	require.NoError(t, audit.RecordCompletion(ctx, providers.CompletionAudit{Operation: "analysis", Provider: "openai", Model: "gpt-4o-mini", Status: "ok", LatencyMS: 12}))
	stats, err := audit.ProviderStats(ctx)
	require.NoError(t, err)
	require.Equal(t, []ProviderStat{{Provider: "gemini", Calls: 1, Failures: 1}, {Provider: "openai", Calls: 1}}, stats)
}
