package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Provenance string

const (
	ProvenanceUser      Provenance = "user"
	ProvenanceReference Provenance = "reference"
)

// SupportedExtensions lists the lowercase file extensions ingestion accepts.
var SupportedExtensions = []string{".pdf", ".txt", ".md"}

func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DocumentSet is an ordered list of file paths sharing one provenance.
type DocumentSet struct {
	provenance Provenance
	paths      []string
}

// NewDocumentSet keeps only supported paths, preserving order.
func NewDocumentSet(p Provenance, paths []string) DocumentSet {
	kept := make([]string, 0, len(paths))
	for _, path := range paths {
		if strings.TrimSpace(path) == "" || !IsSupported(path) {
			continue
		}
		kept = append(kept, path)
	}
	return DocumentSet{provenance: p, paths: kept}
}

func (s DocumentSet) Provenance() Provenance { return s.provenance }

func (s DocumentSet) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

func (s DocumentSet) Len() int { return len(s.paths) }

type TextChunk struct {
	Text       string     `json:"text"`
	Source     string     `json:"source"`
	Provenance Provenance `json:"provenance"`
}

// Section labels. Their order in a bundle is fixed.
const (
	SectionUser      = "USER DOCUMENTS"
	SectionReference = "REFERENCE DOCUMENTS"
	SectionVector    = "VECTOR SEARCH RESULTS"
	SectionLoaded    = "LOADED DOCUMENTS"
)

// MaxSections bounds the number of sections in a ContextBundle.
const MaxSections = 3

type ContextSection struct {
	Label  string   `json:"label"`
	Chunks []string `json:"chunks"`
}

type ContextBundle struct {
	Sections []ContextSection `json:"sections"`
}

func (b ContextBundle) Section(label string) (ContextSection, bool) {
	for _, s := range b.Sections {
		if s.Label == label {
			return s, true
		}
	}
	return ContextSection{}, false
}

func (b ContextBundle) Empty() bool {
	for _, s := range b.Sections {
		if len(s.Chunks) > 0 {
			return false
		}
	}
	return true
}

// String renders each non-empty section as a labeled block.
func (b ContextBundle) String() string {
	var sb strings.Builder
	for _, s := range b.Sections {
		if len(s.Chunks) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "=== %s (%d) ===\n", s.Label, len(s.Chunks))
		sb.WriteString(strings.Join(s.Chunks, "\n---\n"))
	}
	return sb.String()
}

type Dimension struct {
	Name        string `json:"dimension"`
	Description string `json:"description"`
}

type Category struct {
	Name       string      `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
}

// ScoringCriteria keeps categories in file order.
type ScoringCriteria struct {
	Categories []Category `json:"categories"`
}

func (c *ScoringCriteria) CategoryNames() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, cat.Name)
	}
	return out
}

func (c *ScoringCriteria) Dimensions(category string) []Dimension {
	if c == nil {
		return nil
	}
	for _, cat := range c.Categories {
		if cat.Name == category {
			return cat.Dimensions
		}
	}
	return nil
}

type Metric struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type MetricsSet struct {
	Key     string   `json:"key"`
	Metrics []Metric `json:"metrics"`
}

type Mode string

const (
	ModeAuto     Mode = ""
	ModeAnalysis Mode = "analysis"
	ModeScoring  Mode = "scoring"
	ModeExplore  Mode = "explore"
)

func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeAuto, ModeAnalysis, ModeScoring, ModeExplore:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

type RouteKind string

const (
	RouteScoring  RouteKind = "scoring"
	RouteExplore  RouteKind = "explore"
	RouteAnalysis RouteKind = "analysis"
)

// RoutingDecision is derived per query and never stored.
type RoutingDecision struct {
	Kind         RouteKind
	Files        []string
	Conversation string
}

type ScoreResult struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	Scoring   string `json:"scoring_result,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (r ScoreResult) Failed() bool { return r.Error != "" }

// QueryResult is the uniform shape returned by every routing path.
type QueryResult struct {
	Agent   string        `json:"agent"`
	Query   string        `json:"query"`
	Context string        `json:"context,omitempty"`
	Prompt  string        `json:"enhanced_prompt,omitempty"`
	Answer  string        `json:"response"`
	Results []ScoreResult `json:"results,omitempty"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

// EmbeddedChunk is one window of text with its embedding, as persisted by a
// vector store.
type EmbeddedChunk struct {
	Text      string
	Embedding []float32
}

type ScoredChunk struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Turn is one explore exchange kept as conversation history.
type Turn struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
