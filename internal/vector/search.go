package vector

import (
	"math"
	"sort"

	"reportrag/internal/models"
)

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RankTopK scores every chunk against query and returns the best k, highest
// first. Ties keep insertion order.
func RankTopK(chunks []models.EmbeddedChunk, query []float32, k int) []models.ScoredChunk {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}
	scored := make([]models.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		scored = append(scored, models.ScoredChunk{Text: c.Text, Score: Cosine(c.Embedding, query)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
