// Package criteria loads the static scoring rubric and metrics glossary.
package criteria

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"reportrag/internal/models"
)

const contentRefMarker = ":contentReference["

// LoadCriteria reads a rubric file shaped as
// {"<category>": {"dimensions": [{"dimension": "...", "description": "..."}]}}.
// Category order follows the file. A missing or malformed file yields nil.
func LoadCriteria(path string, logger *zap.Logger) *models.ScoringCriteria {
	if logger == nil {
		logger = zap.NewNop()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Error("scoring criteria unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	c, err := parseCriteria(b)
	if err != nil {
		logger.Error("scoring criteria invalid", zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Info("scoring criteria loaded", zap.String("path", path), zap.Int("categories", len(c.Categories)))
	return c
}

func parseCriteria(b []byte) (*models.ScoringCriteria, error) {
	dec := json.NewDecoder(strings.NewReader(string(b)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	out := &models.ScoringCriteria{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := keyTok.(string)
		var body struct {
			Dimensions []models.Dimension `json:"dimensions"`
		}
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("category %q: %w", name, err)
		}
		out.Categories = append(out.Categories, models.Category{Name: name, Dimensions: body.Dimensions})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatCriteria renders categories as "## " headings and dimensions as "### "
// headings followed by their cleaned description.
func FormatCriteria(c *models.ScoringCriteria) string {
	if c == nil || len(c.Categories) == 0 {
		return "No scoring criteria available."
	}
	lines := make([]string, 0, len(c.Categories)*4)
	for _, cat := range c.Categories {
		lines = append(lines, "## "+cat.Name)
		for _, d := range cat.Dimensions {
			if d.Name == "" || d.Description == "" {
				continue
			}
			lines = append(lines, "### "+d.Name, StripContentRefs(d.Description)+"\n")
		}
	}
	return strings.Join(lines, "\n")
}

// StripContentRefs removes ":contentReference[...]" citation markers along
// with a directly following "{index=N}" suffix. An unterminated marker is left
// in place.
func StripContentRefs(s string) string {
	for {
		start := strings.Index(s, contentRefMarker)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], "]")
		if end < 0 {
			return s
		}
		rest := s[start+end+1:]
		if strings.HasPrefix(rest, "{index=") {
			if j := strings.Index(rest, "}"); j >= 0 {
				rest = rest[j+1:]
			}
		}
		s = s[:start] + rest
	}
}
