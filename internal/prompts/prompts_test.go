package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"reportrag/internal/models"
)

func sampleCriteria() *models.ScoringCriteria {
	return &models.ScoringCriteria{Categories: []models.Category{
		{Name: "Governance", Dimensions: []models.Dimension{
			{Name: "Board oversight", Description: "Board reviews climate risk :contentReference[oaicite:1]{index=1} annually."},
		}},
		{Name: "Metrics and Targets", Dimensions: []models.Dimension{
			{Name: "Scope 3", Description: "Value chain emissions are disclosed."},
		}},
	}}
}

func TestScoringTruncatesBody(t *testing.T) {
	body := strings.Repeat("é", 50000) + strings.Repeat("ü", 10000)
	prompt, err := Scoring(body, sampleCriteria(), 0)
	require.NoError(t, err)
	require.Equal(t, 50000, strings.Count(prompt, "é"))
	require.NotContains(t, prompt, "ü")

	prompt, err = Scoring(body, sampleCriteria(), 10)
	require.NoError(t, err)
	require.Equal(t, 10, strings.Count(prompt, "é"))
}

func TestScoringRendersRubric(t *testing.T) {
	prompt, err := Scoring("report body", sampleCriteria(), 100)
	require.NoError(t, err)
	require.Contains(t, prompt, "## Governance\n### Board oversight\nBoard reviews climate risk  annually.")
	require.NotContains(t, prompt, "contentReference")
	require.Contains(t, prompt, "0: Not addressed at all")
	require.Contains(t, prompt, "5: Comprehensively addressed")
	require.Contains(t, prompt, "Evidence from the report")
	require.Contains(t, prompt, "Recommendations for improvement")
	require.Contains(t, prompt, "average score of its dimensions")
	require.Contains(t, prompt, "overall report score")
	require.Less(t, strings.Index(prompt, "## Governance"), strings.Index(prompt, "## Metrics and Targets"))
}

func TestScoringWithoutCriteria(t *testing.T) {
	_, err := Scoring("body", nil, 0)
	require.ErrorIs(t, err, models.ErrCriteriaNotLoaded)
}

func TestAnalysisTemplateSelection(t *testing.T) {
	metrics := &models.MetricsSet{Key: "metrics", Metrics: []models.Metric{{Term: "GHG intensity", Definition: "tCO2e per revenue"}}}

	structured := Analysis("How do we compare?", "=== USER DOCUMENTS (1) ===\nour targets", metrics)
	require.Contains(t, structured, "SUSTAINABILITY METRICS AND DEFINITIONS:")
	require.Contains(t, structured, "GHG intensity")
	require.Contains(t, structured, "Alignment with the metrics above")

	generic := Analysis("What are the governance practices?", "=== VECTOR SEARCH RESULTS (1) ===\nboard", metrics)
	require.NotContains(t, generic, "GHG intensity")
	require.Contains(t, generic, "Extracted Context:\n=== VECTOR SEARCH RESULTS (1) ===\nboard")
	require.Contains(t, generic, "User Question:\nWhat are the governance practices?")
	require.Contains(t, generic, "Please answer ONLY based on the extracted context above.")
}

func TestAnalysisIgnoresLabelInDocumentText(t *testing.T) {
	metrics := &models.MetricsSet{Key: "metrics", Metrics: []models.Metric{{Term: "GHG intensity", Definition: "tCO2e per revenue"}}}
	raw := "=== LOADED DOCUMENTS (1) ===\nAppendix B lists USER DOCUMENTS submitted by suppliers."

	p := Analysis("Who submitted documents?", raw, metrics)
	require.NotContains(t, p, "Alignment with the metrics above")
	require.NotContains(t, p, "GHG intensity")
	require.Contains(t, p, "Please answer ONLY based on the extracted context above.")
}

func TestExploreIncludesHistory(t *testing.T) {
	p := Explore("And scope 3?", "ctx", []models.Turn{{Query: "Scope 1?", Answer: "12 kt"}})
	require.Contains(t, p, "Conversation So Far:\nUser: Scope 1?\nAssistant: 12 kt\n")
	require.Contains(t, p, "User Question:\nAnd scope 3?")

	require.NotContains(t, Explore("q", "ctx", nil), "Conversation So Far")
}
