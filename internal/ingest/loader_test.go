package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"reportrag/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadText(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "report.TXT", "Scope 1 emissions fell 12%.\x00\n")
	l := NewLoader(zaptest.NewLogger(t))

	segments, err := l.Load(p)
	require.NoError(t, err)
	require.Equal(t, []string{"Scope 1 emissions fell 12%."}, segments)
}

func TestLoadMarkdownStripsMarkup(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "notes.md", "# Climate Strategy\n\nSome **bold** text with a [link](http://example.com).\n\n- item one\n- item two\n\n<div>raw</div>\n")
	l := NewLoader(zaptest.NewLogger(t))

	segments, err := l.Load(p)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	out := segments[0]
	require.Contains(t, out, "Climate Strategy")
	require.Contains(t, out, "Some bold text with a link.")
	require.Contains(t, out, "item one")
	require.Contains(t, out, "item two")
	require.NotContains(t, out, "**")
	require.NotContains(t, out, "http://example.com")
	require.NotContains(t, out, "<div>")
	require.False(t, strings.HasPrefix(out, "#"))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(nil)

	_, err := l.Load(filepath.Join(dir, "missing.pdf"))
	require.True(t, errors.Is(err, models.ErrFileNotFound))

	docx := writeFile(t, dir, "report.docx", "binary")
	_, err = l.Load(docx)
	require.True(t, errors.Is(err, models.ErrUnsupportedFileType))

	empty := writeFile(t, dir, "empty.txt", " \n\t\n")
	_, err = l.Load(empty)
	require.True(t, errors.Is(err, models.ErrNoExtractableText))

	broken := writeFile(t, dir, "broken.pdf", "not a pdf")
	_, err = l.Load(broken)
	require.Error(t, err)
}

func TestLoadBatchSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	c := writeFile(t, dir, "c.md", "gamma")
	l := NewLoader(zaptest.NewLogger(t))

	out := l.LoadBatch([]string{a, filepath.Join(dir, "b.txt"), c})
	require.Equal(t, []string{"alpha", "gamma"}, out)
}

func TestLoadChunksKeepsProvenance(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	set := models.NewDocumentSet(models.ProvenanceReference, []string{a, filepath.Join(dir, "gone.txt")})
	chunks := NewLoader(nil).LoadChunks(set)
	require.Equal(t, []models.TextChunk{{Text: "alpha", Source: a, Provenance: models.ProvenanceReference}}, chunks)
}

func TestListSupported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.pdf", "x")
	writeFile(t, dir, "nested/a.md", "x")
	writeFile(t, dir, "nested/skip.json", "{}")
	writeFile(t, dir, "b.txt", "x")

	out, err := ListSupported(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "nested", "a.md"),
		filepath.Join(dir, "z.pdf"),
	}, out)

	_, err = ListSupported(filepath.Join(dir, "nope"))
	require.True(t, errors.Is(err, models.ErrFileNotFound))

	out, err = ListSupported("")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestShouldVectorize(t *testing.T) {
	dir := t.TempDir()
	small := writeFile(t, dir, "small.txt", "abc")
	big := writeFile(t, dir, "big.txt", strings.Repeat("x", 2000))

	require.False(t, ShouldVectorize([]string{small}, 3, 1000))
	require.True(t, ShouldVectorize([]string{small, small, small, small}, 3, 1000))
	require.True(t, ShouldVectorize([]string{big}, 3, 1000))
}
