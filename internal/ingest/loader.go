// Package ingest turns PDF, text and markdown files into plain-text segments.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"reportrag/internal/models"
	"reportrag/internal/util"
)

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load extracts text from a single file. PDFs yield one segment per non-empty
// page; text and markdown files yield one segment.
func (l *Loader) Load(path string) ([]string, error) {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return nil, fmt.Errorf("%w: %s", models.ErrFileNotFound, path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	var segments []string
	switch ext {
	case ".pdf":
		segments, err = loadPDF(path)
	case ".txt":
		segments, err = loadText(path)
	case ".md":
		segments, err = loadMarkdown(path)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFileType, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoExtractableText, path)
	}
	l.logger.Info("loaded document", zap.String("path", path), zap.Int("segments", len(segments)))
	return segments, nil
}

// LoadBatch loads every path, logging and skipping failures.
func (l *Loader) LoadBatch(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		segments, err := l.Load(p)
		if err != nil {
			l.logger.Warn("skipping document", zap.String("path", p), zap.Error(err))
			continue
		}
		out = append(out, segments...)
	}
	l.logger.Info("batch loaded", zap.Int("files", len(paths)), zap.Int("segments", len(out)))
	return out
}

// LoadChunks is LoadBatch that keeps each segment's source and provenance.
func (l *Loader) LoadChunks(set models.DocumentSet) []models.TextChunk {
	out := make([]models.TextChunk, 0, set.Len())
	for _, p := range set.Paths() {
		segments, err := l.Load(p)
		if err != nil {
			l.logger.Warn("skipping document", zap.String("path", p), zap.String("provenance", string(set.Provenance())), zap.Error(err))
			continue
		}
		for _, s := range segments {
			out = append(out, models.TextChunk{Text: s, Source: p, Provenance: set.Provenance()})
		}
	}
	return out
}

func loadPDF(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		if text = util.SanitizeText(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

func loadText(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if text := util.SanitizeText(string(b)); text != "" {
		return []string{text}, nil
	}
	return nil, nil
}

func loadMarkdown(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	if text := util.SanitizeText(markdownToText(b)); text != "" {
		return []string{text}, nil
	}
	return nil, nil
}

// ListSupported walks dir and returns every supported file, sorted.
func ListSupported(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	out := make([]string, 0)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !models.IsSupported(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrFileNotFound, dir)
		}
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// ShouldVectorize reports whether a file set is large enough to warrant a
// vector index: more than maxFiles files or more than maxBytes in total.
func ShouldVectorize(paths []string, maxFiles int, maxBytes int64) bool {
	if maxFiles > 0 && len(paths) > maxFiles {
		return true
	}
	return maxBytes > 0 && util.TotalSize(paths) > maxBytes
}
