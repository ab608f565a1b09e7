package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// MockProvider returns deterministic completions and hashed bag-of-words
// embeddings, so texts sharing words land close together.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, hashedVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim)}, nil
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1"}
	var b strings.Builder
	switch strings.ToLower(req.Operation) {
	case "scoring":
		b.WriteString("## Dimension Scores\n- Mock dimension: 3/5. Deterministic score.\n")
		b.WriteString("## Category Averages\n- Mock category: 3.0\n")
		b.WriteString("## Overall Score\n3.0\n")
		b.WriteString("## Summary\nMock scoring only; configure a real provider for meaningful results.")
	default:
		b.WriteString("## Answer\n")
		fmt.Fprintf(&b, "- Deterministic %s answer from a %d character prompt.\n", orDefault(req.Operation, "completion"), len([]rune(req.Prompt)))
		b.WriteString("## Confidence\n- Mock output only.")
	}
	return CompletionResponse{Text: b.String()}, info, nil
}

func hashedVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(tokens) == 0 {
		tokens = []string{"empty"}
	}
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(dim))
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
