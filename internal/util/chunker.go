package util

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators are tried in order when looking for a clean break near the end of
// a window.
var separators = []string{"\n\n", "\n", ". ", " "}

// SplitText cuts text into windows of at most chunkSize runes. Consecutive
// windows share up to overlap runes. Breaks prefer paragraph, line, sentence
// and word boundaries in the back half of the window.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	runes := []rune(text)
	n := len(runes)
	out := make([]string, 0, n/chunkSize+1)
	for start := 0; start < n; {
		end := start + chunkSize
		if end >= n {
			end = n
		} else {
			end = breakPoint(runes, start, end)
		}
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			out = append(out, part)
		}
		if end == n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func breakPoint(runes []rune, start, end int) int {
	if unicode.IsSpace(runes[end]) {
		return end
	}
	floor := start + (end-start)/2
	for _, sep := range separators {
		sr := []rune(sep)
		for i := end - len(sr); i >= floor; i-- {
			if hasPrefixAt(runes, i, sr) {
				return i + len(sr)
			}
		}
	}
	return end
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
