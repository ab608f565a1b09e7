package criteria

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"reportrag/internal/models"
)

// LoadMetrics reads a glossary shaped as {"<key>": [{"term", "definition"}]}.
// Only the first top-level key is used. A missing or malformed file yields nil.
func LoadMetrics(path string, logger *zap.Logger) *models.MetricsSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Error("metrics unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	m, err := parseMetrics(b)
	if err != nil {
		logger.Error("metrics invalid", zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Info("metrics loaded", zap.String("path", path), zap.Int("metrics", len(m.Metrics)))
	return m
}

func parseMetrics(b []byte) (*models.MetricsSet, error) {
	dec := json.NewDecoder(strings.NewReader(string(b)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	if !dec.More() {
		return &models.MetricsSet{}, nil
	}
	keyTok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	key, _ := keyTok.(string)
	var metrics []models.Metric
	if err := dec.Decode(&metrics); err != nil {
		return nil, fmt.Errorf("metrics %q: %w", key, err)
	}
	return &models.MetricsSet{Key: key, Metrics: metrics}, nil
}

// FormatMetrics renders each complete metric as "- term: definition".
func FormatMetrics(m *models.MetricsSet) string {
	if m == nil {
		return "No metrics data available."
	}
	items := make([]string, 0, len(m.Metrics))
	for _, x := range m.Metrics {
		if x.Term == "" || x.Definition == "" {
			continue
		}
		items = append(items, fmt.Sprintf("- %s: %s", x.Term, x.Definition))
	}
	if len(items) == 0 {
		return "No valid metrics found in the data."
	}
	return "SUSTAINABILITY METRICS AND DEFINITIONS:\n" + strings.Join(items, "\n\n")
}
