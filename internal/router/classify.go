package router

import (
	"regexp"
	"strings"

	"reportrag/internal/models"
)

// ScoringKeywords trigger the scoring path when no mode is given.
var ScoringKeywords = []string{
	"score", "scoring", "rate", "rating", "evaluate",
	"assessment", "grade", "rank", "benchmark", "measure",
}

var scoringPattern = regexp.MustCompile(`\b(` + strings.Join(ScoringKeywords, "|") + `)\b`)

// Classify maps a query to a route. An explicit mode always wins; otherwise a
// whole-word scoring keyword selects scoring and anything else is analysis.
func Classify(query string, mode models.Mode) models.RouteKind {
	switch mode {
	case models.ModeScoring:
		return models.RouteScoring
	case models.ModeExplore:
		return models.RouteExplore
	case models.ModeAnalysis:
		return models.RouteAnalysis
	}
	if scoringPattern.MatchString(strings.ToLower(query)) {
		return models.RouteScoring
	}
	return models.RouteAnalysis
}
