package criteria

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"reportrag/internal/models"
)

const rubric = `{
  "Governance": {"dimensions": [
    {"dimension": "Board oversight", "description": "Board reviews climate risk :contentReference[oaicite:0]{index=0}quarterly."},
    {"dimension": "Incomplete", "description": ""}
  ]},
  "Strategy": {"dimensions": [
    {"dimension": "Scenario analysis", "description": "Uses 1.5C scenarios."}
  ]},
  "Metrics": {"dimensions": []}
}`

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCriteriaKeepsFileOrder(t *testing.T) {
	c := LoadCriteria(write(t, "Report_score.json", rubric), zaptest.NewLogger(t))
	require.NotNil(t, c)
	require.Equal(t, []string{"Governance", "Strategy", "Metrics"}, c.CategoryNames())
	require.Len(t, c.Dimensions("Governance"), 2)
}

func TestLoadCriteriaMissingOrInvalid(t *testing.T) {
	require.Nil(t, LoadCriteria(filepath.Join(t.TempDir(), "none.json"), nil))
	require.Nil(t, LoadCriteria(write(t, "bad.json", `["not", "an", "object"]`), nil))
	require.Nil(t, LoadCriteria(write(t, "trunc.json", `{"Governance": {"dimensions": [`), nil))
}

func TestFormatCriteria(t *testing.T) {
	c := LoadCriteria(write(t, "Report_score.json", rubric), nil)
	out := FormatCriteria(c)
	require.Equal(t, "## Governance\n### Board oversight\nBoard reviews climate risk quarterly.\n\n## Strategy\n### Scenario analysis\nUses 1.5C scenarios.\n\n## Metrics", out)
	require.Equal(t, "No scoring criteria available.", FormatCriteria(nil))
}

func TestStripContentRefs(t *testing.T) {
	require.Equal(t, "a b", StripContentRefs("a :contentReference[x]b"))
	require.Equal(t, "ab", StripContentRefs("a:contentReference[1]:contentReference[2]b"))
	require.Equal(t, "a b", StripContentRefs("a :contentReference[oaicite:3]{index=3}b"))
	require.Equal(t, "a :contentReference[open", StripContentRefs("a :contentReference[open"))
}

func TestLoadAndFormatMetrics(t *testing.T) {
	p := write(t, "metrics.json", `{"sustainability_metrics": [
	  {"term": "Scope 1", "definition": "Direct emissions."},
	  {"term": "", "definition": "skipped"},
	  {"term": "Scope 2", "definition": "Purchased energy emissions."}
	], "ignored": []}`)
	m := LoadMetrics(p, zaptest.NewLogger(t))
	require.NotNil(t, m)
	require.Equal(t, "sustainability_metrics", m.Key)
	require.Len(t, m.Metrics, 3)
	require.Equal(t, "SUSTAINABILITY METRICS AND DEFINITIONS:\n- Scope 1: Direct emissions.\n\n- Scope 2: Purchased energy emissions.", FormatMetrics(m))

	require.Nil(t, LoadMetrics("", nil))
	require.Nil(t, LoadMetrics(filepath.Join(t.TempDir(), "none.json"), nil))
	require.Equal(t, "No metrics data available.", FormatMetrics(nil))
	require.Equal(t, "No valid metrics found in the data.", FormatMetrics(&models.MetricsSet{Key: "k"}))
}
