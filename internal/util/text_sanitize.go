package util

import "strings"

// SanitizeText drops NUL bytes and non-printing controls that some PDF
// extractors emit, trims trailing spaces per line, and collapses runs of blank
// lines to one.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\t' {
			b.WriteRune(ch)
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		b.WriteRune(ch)
	}
	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Truncate returns at most maxRunes runes of s. A non-positive limit returns s
// unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// DisplaySnippet flattens whitespace and shortens s for terminal output.
func DisplaySnippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 200
	}
	flat := strings.Join(strings.Fields(SanitizeText(s)), " ")
	if len([]rune(flat)) <= maxRunes {
		return flat
	}
	return strings.TrimSpace(Truncate(flat, maxRunes)) + "..."
}
