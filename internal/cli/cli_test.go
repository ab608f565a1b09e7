package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"reportrag/internal/models"
)

type recordingQuerier struct {
	queries []string
	modes   []models.Mode
}

func (q *recordingQuerier) Route(ctx context.Context, query string, mode models.Mode) models.QueryResult {
	q.queries = append(q.queries, query)
	q.modes = append(q.modes, mode)
	return models.QueryResult{
		Agent:   "rag_assistant",
		Query:   query,
		Context: "\n\nRelevant Context:\nScope 1   emissions\nfell.",
		Answer:  "answer to " + query,
		Success: true,
	}
}

func TestChatLoop(t *testing.T) {
	q := &recordingQuerier{}
	var out bytes.Buffer
	in := strings.NewReader("What changed?\n\n  \nQUIT\nnever asked\n")

	require.NoError(t, Chat(context.Background(), q, in, &out, models.ModeAnalysis))
	require.Equal(t, []string{"What changed?"}, q.queries)
	require.Equal(t, []models.Mode{models.ModeAnalysis}, q.modes)

	text := out.String()
	require.Contains(t, text, "Relevant Context: Scope 1 emissions fell.")
	require.Contains(t, text, "answer to What changed?")
	require.Equal(t, 2, strings.Count(text, "Question cannot be empty."))
	require.Contains(t, text, "Exited report Q&A.")
}

func TestChatStopsAtEOF(t *testing.T) {
	q := &recordingQuerier{}
	require.NoError(t, Chat(context.Background(), q, strings.NewReader("one\ntwo"), &bytes.Buffer{}, models.ModeAuto))
	require.Equal(t, []string{"one", "two"}, q.queries)
}

func TestPrintResultShowsFailure(t *testing.T) {
	var out bytes.Buffer
	PrintResult(&out, models.QueryResult{Agent: "explore_agent", Answer: "No user documents have been uploaded.", Error: "no user documents have been uploaded"})
	require.Contains(t, out.String(), "========= explore_agent =========")
	require.Contains(t, out.String(), "[Error] no user documents have been uploaded")
	require.NotContains(t, out.String(), "Retrieved context preview")
}

func TestResolvePriority(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "req.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	got := resolvePriority("/docs", []string{existing, "targets.pdf", "../escape.txt"})
	require.Equal(t, []string{existing, filepath.Join("/docs", "targets.pdf"), filepath.Join("/docs", "escape.txt")}, got)
}

func setMockEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	criteria := filepath.Join(dir, "Report_score.json")
	require.NoError(t, os.WriteFile(criteria, []byte(`{"Environment": {"dimensions": [{"dimension": "Emissions", "description": "Scope 1 and 2 reported."}]}}`), 0o644))
	t.Setenv("REPORTRAG_LLM_PROVIDER", "mock")
	t.Setenv("REPORTRAG_LLM_FALLBACKS", "")
	t.Setenv("REPORTRAG_EMBED_PROVIDERS", "mock")
	t.Setenv("REPORTRAG_EMBED_DIM", "64")
	t.Setenv("REPORTRAG_VECTOR_BACKEND", "memory")
	t.Setenv("REPORTRAG_CRITERIA_PATH", criteria)
	t.Setenv("REPORTRAG_METRICS_PATH", filepath.Join(dir, "none.json"))
	t.Setenv("REPORTRAG_REFERENCE_DIR", filepath.Join(dir, "reference"))
	t.Setenv("REPORTRAG_DATA_OUT", filepath.Join(dir, "out"))
	t.Setenv("REPORTRAG_LOG_LEVEL", "error")
	return dir
}

func TestScoreCommand(t *testing.T) {
	dir := setMockEnv(t)
	report := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(report, []byte("Scope 1 emissions fell 12 percent."), 0o644))
	outFile := filepath.Join(dir, "scores.md")

	root := Root("test")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"score", report, filepath.Join(dir, "missing.pdf"), "--out", outFile})
	require.NoError(t, root.ExecuteContext(context.Background()))

	require.Contains(t, stdout.String(), "## Scoring Results for report.txt")
	require.Contains(t, stdout.String(), "Error scoring missing.pdf")
	written, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, stdout.String(), string(written))
}

func TestAskCommandRejectsUnknownMode(t *testing.T) {
	setMockEnv(t)
	root := Root("test")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ask", "hello", "--mode", "bogus"})
	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, models.ErrUnknownMode)
}

func TestAskCommandAnalysis(t *testing.T) {
	dir := setMockEnv(t)
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "report.md"), []byte("# Targets\n\nNet zero by 2040."), 0o644))

	root := Root("test")
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ask", "What are the targets?", "--docs", docs})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Contains(t, stdout.String(), "========= rag_assistant =========")
	require.Contains(t, stdout.String(), "Net zero by 2040.")
}
