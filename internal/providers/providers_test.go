package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"reportrag/internal/config"
	"reportrag/internal/models"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":            ErrorQuota,
		"429 too many":                  ErrorRate,
		"rate limit reached":            ErrorRate,
		"maximum context length is 8k":  ErrorContext,
		"timeout":                       ErrorTransient,
		"bad request":                   ErrorPermanent,
		"openai generate error 400 bad": ErrorPermanent,
	}
	for msg, want := range cases {
		require.Equal(t, want, ClassifyError(errors.New(msg)), msg)
	}
	require.Equal(t, ErrorEmpty, ClassifyError(fmt.Errorf("wrap: %w", ErrEmptyResponse)))
	require.Equal(t, ErrorTransient, ClassifyError(context.DeadlineExceeded))
	require.Equal(t, ErrorRate, ClassifyError(fmt.Errorf("x: %w", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"})))
	require.Equal(t, ErrorTransient, ClassifyError(&openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}))
	require.Equal(t, ErrorType(""), ClassifyError(nil))
}

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList(" OpenAI:gpt-4o | groq || mock ")
	require.Len(t, refs, 3)
	require.Equal(t, ProviderRef{Raw: "OpenAI:gpt-4o", Name: "openai", Model: "gpt-4o"}, refs[0])
	require.Equal(t, "groq", refs[1].Name)
	require.Empty(t, refs[1].Model)
	require.Empty(t, ParseProviderList(""))
}

type scriptedProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *scriptedProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error) {
	s.calls++
	return CompletionResponse{Text: s.text}, ProviderInfo{Name: s.name, Model: s.name + "-model"}, s.err
}

type recordingAuditor struct {
	mu     sync.Mutex
	audits []CompletionAudit
}

func (r *recordingAuditor) RecordCompletion(ctx context.Context, a CompletionAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, a)
	return nil
}

func TestManagerFallsBackInOrder(t *testing.T) {
	failing := &scriptedProvider{name: "gemini", err: errors.New("503 unavailable")}
	empty := &scriptedProvider{name: "openai", text: "   "}
	good := &scriptedProvider{name: "groq", text: "grounded answer"}
	unused := &scriptedProvider{name: "mock", text: "never"}

	m := NewManagerFrom([]NamedCompletionProvider{
		{Ref: ProviderRef{Name: "gemini"}, Provider: failing},
		{Ref: ProviderRef{Name: "openai"}, Provider: empty},
		{Ref: ProviderRef{Name: "groq"}, Provider: good},
		{Ref: ProviderRef{Name: "mock"}, Provider: unused},
	}, nil, zaptest.NewLogger(t))
	auditor := &recordingAuditor{}
	m.SetAuditor(auditor)

	resp, info, err := m.Complete(context.Background(), CompletionRequest{Operation: "analysis", Prompt: "q"})
	require.NoError(t, err)
	require.Equal(t, "grounded answer", resp.Text)
	require.Equal(t, "groq", info.Name)
	require.Equal(t, 0, unused.calls)

	require.Len(t, auditor.audits, 3)
	require.Equal(t, ErrorTransient, auditor.audits[0].ErrorType)
	require.Equal(t, ErrorEmpty, auditor.audits[1].ErrorType)
	require.Equal(t, "ok", auditor.audits[2].Status)
}

func TestManagerExhaustionReturnsProviderError(t *testing.T) {
	m := NewManagerFrom([]NamedCompletionProvider{
		{Ref: ProviderRef{Name: "openai"}, Provider: &scriptedProvider{name: "openai", err: errors.New("insufficient_quota")}},
		{Ref: ProviderRef{Name: "groq"}, Provider: &scriptedProvider{name: "groq", err: errors.New("bad request")}},
	}, nil, nil)

	_, _, err := m.Complete(context.Background(), CompletionRequest{Operation: "scoring", Prompt: "q"})
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrProvider))

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "scoring", perr.Operation)
	require.Len(t, perr.Attempts, 2)
	require.Equal(t, ErrorQuota, perr.Attempts[0].Type)
	require.Equal(t, ErrorPermanent, perr.Attempts[1].Type)
	require.Contains(t, err.Error(), "groq(permanent)")
}

func TestManagerEmbedFallsBackToMock(t *testing.T) {
	m := NewManagerFrom(nil, []NamedEmbedProvider{
		{Ref: ProviderRef{Name: "openai"}, Provider: NewOpenAIProvider(OpenAIConfig{RequireKey: true})},
		{Ref: ProviderRef{Name: "mock"}, Provider: NewMockProvider(32)},
	}, zaptest.NewLogger(t))

	vectors, info, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 32})
	require.NoError(t, err)
	require.Equal(t, "mock", info.Name)
	require.Len(t, vectors, 2)
	require.Len(t, vectors[0], 32)
}

func TestNewManagerFromConfig(t *testing.T) {
	cfg := config.Config{
		LLMProvider:    "google",
		LLMModel:       "gemini-1.5-pro",
		LLMFallbacks:   "groq:llama-3.1-8b-instant|openai|mock",
		EmbedProviders: "ollama:nomic|mock",
		EmbedDim:       64,
		OllamaBaseURL:  "http://localhost:11434",
	}
	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	names := []string{}
	for _, r := range m.CompletionRefs() {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"google", "groq", "openai", "mock"}, names)
	require.Equal(t, "gemini-1.5-pro", m.CompletionRefs()[0].Model)
	require.Len(t, m.EmbedRefs(), 2)

	// Without keys every remote provider fails and the mock answers.
	resp, info, err := m.Complete(context.Background(), CompletionRequest{Operation: "analysis", Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "mock", info.Name)
	require.Contains(t, resp.Text, "Deterministic analysis answer")

	cfg.LLMFallbacks = "carrier-pigeon"
	_, err = NewManager(cfg, nil)
	require.Error(t, err)

	cfg.LLMFallbacks = ""
	cfg.EmbedProviders = "groq"
	_, err = NewManager(cfg, nil)
	require.Error(t, err)
}

func TestOpenAIProviderAgainstCompatibleServer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var body struct {
				Model    string `json:"model"`
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			reply := fmt.Sprintf("%s saw %d messages, first role %s", body.Model, len(body.Messages), body.Messages[0].Role)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "cmpl-1",
				"object":  "chat.completion",
				"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}}},
			})
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data": []map[string]any{
					{"object": "embedding", "index": 1, "embedding": []float32{0, 1, 0}},
					{"object": "embedding", "index": 0, "embedding": []float32{1, 0, 0}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{Name: "groq", APIKey: "k", BaseURL: srv.URL + "/v1", Model: "llama", RequireKey: true})
	resp, info, err := p.Complete(context.Background(), CompletionRequest{System: "be brief", Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "llama saw 2 messages, first role system", resp.Text)
	require.Equal(t, ProviderInfo{Name: "groq", Model: "llama"}, info)
	require.Equal(t, "Bearer k", gotAuth)

	vectors, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 4})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}, vectors)
}

func TestMissingKeysFailFast(t *testing.T) {
	_, _, err := NewGroqProvider("", "", 0.7).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.ErrorContains(t, err, "groq api key missing")

	_, _, err = NewGeminiProvider("", "", "", 0.7).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.ErrorContains(t, err, "gemini api key missing")
}

func TestMockEmbeddingSharesWords(t *testing.T) {
	m := NewMockProvider(256)
	vecs, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{
		"scope emissions reduction",
		"emissions reduction targets",
		"board diversity policy",
	}})
	require.NoError(t, err)
	dot := func(a, b []float32) float32 {
		var s float32
		for i := range a {
			s += a[i] * b[i]
		}
		return s
	}
	require.InDelta(t, 1.0, dot(vecs[0], vecs[0]), 1e-5)
	require.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestResolveOllamaEmbedModel(t *testing.T) {
	require.Equal(t, "nomic-embed-text", ResolveOllamaEmbedModel(""))
	require.Equal(t, "bge-small-en-v1.5", ResolveOllamaEmbedModel("BGE"))
	require.Equal(t, "all-minilm", ResolveOllamaEmbedModel("all-minilm"))
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	require.Equal(t, []float32{1, 2}, matchDimension(src, 2))
	require.Equal(t, []float32{1, 2, 3, 0, 0}, matchDimension(src, 5))
	require.Equal(t, src, matchDimension(src, 0))
}
