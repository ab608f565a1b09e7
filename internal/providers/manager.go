package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"reportrag/internal/config"
)

type NamedCompletionProvider struct {
	Ref      ProviderRef
	Provider CompletionProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager walks an explicit ordered provider list: the primary first, then
// each fallback. Errors and empty replies advance to the next entry.
type Manager struct {
	completion []NamedCompletionProvider
	embed      []NamedEmbedProvider
	auditor    Auditor
	logger     *zap.Logger
}

func NewManager(cfg config.Config, logger *zap.Logger) (*Manager, error) {
	completionRefs := append([]ProviderRef{{
		Raw:   cfg.LLMProvider,
		Name:  strings.ToLower(strings.TrimSpace(cfg.LLMProvider)),
		Model: cfg.LLMModel,
	}}, ParseProviderList(cfg.LLMFallbacks)...)

	completion := make([]NamedCompletionProvider, 0, len(completionRefs))
	for _, ref := range completionRefs {
		p, err := buildCompletionProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		completion = append(completion, NamedCompletionProvider{Ref: ref, Provider: p})
	}

	embedRefs := ParseProviderList(cfg.EmbedProviders)
	embed := make([]NamedEmbedProvider, 0, len(embedRefs))
	for _, ref := range embedRefs {
		p, err := buildEmbeddingProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		embed = append(embed, NamedEmbedProvider{Ref: ref, Provider: p})
	}
	return NewManagerFrom(completion, embed, logger), nil
}

// NewManagerFrom builds a Manager over already constructed providers. An empty
// embedding list falls back to the mock embedder.
func NewManagerFrom(completion []NamedCompletionProvider, embed []NamedEmbedProvider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(embed) == 0 {
		embed = []NamedEmbedProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(0)}}
	}
	return &Manager{completion: completion, embed: embed, logger: logger}
}

// SetAuditor records every completion attempt through a.
func (m *Manager) SetAuditor(a Auditor) {
	m.auditor = a
}

func (m *Manager) CompletionRefs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.completion))
	for _, c := range m.completion {
		out = append(out, c.Ref)
	}
	return out
}

func (m *Manager) EmbedRefs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.embed))
	for _, e := range m.embed {
		out = append(out, e.Ref)
	}
	return out
}

func (m *Manager) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error) {
	perr := &ProviderError{Operation: req.Operation}
	for _, c := range m.completion {
		start := time.Now()
		resp, info, err := c.Provider.Complete(ctx, req)
		if err == nil && strings.TrimSpace(resp.Text) == "" {
			err = fmt.Errorf("%w: %s", ErrEmptyResponse, c.Ref.Name)
		}
		if info.Name == "" {
			info.Name = c.Ref.Name
		}
		m.audit(ctx, req, info, resp, err, time.Since(start))
		if err == nil {
			return resp, info, nil
		}
		typ := ClassifyError(err)
		perr.Attempts = append(perr.Attempts, Attempt{Provider: info.Name, Model: info.Model, Type: typ, Err: err.Error()})
		m.logger.Warn("completion provider failed",
			zap.String("operation", req.Operation),
			zap.String("provider", info.Name),
			zap.String("error_type", string(typ)),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return CompletionResponse{}, ProviderInfo{}, perr
}

func (m *Manager) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	perr := &ProviderError{Operation: orDefault(req.Operation, "embed")}
	for _, e := range m.embed {
		vectors, info, err := e.Provider.Embed(ctx, req)
		if err == nil && len(vectors) != len(req.Inputs) {
			err = fmt.Errorf("%w: %s returned %d vectors for %d inputs", ErrEmptyResponse, e.Ref.Name, len(vectors), len(req.Inputs))
		}
		if err == nil {
			return vectors, info, nil
		}
		typ := ClassifyError(err)
		perr.Attempts = append(perr.Attempts, Attempt{Provider: e.Ref.Name, Model: info.Model, Type: typ, Err: err.Error()})
		m.logger.Warn("embedding provider failed", zap.String("provider", e.Ref.Name), zap.String("error_type", string(typ)), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, ProviderInfo{}, perr
}

func (m *Manager) audit(ctx context.Context, req CompletionRequest, info ProviderInfo, resp CompletionResponse, err error, latency time.Duration) {
	if m.auditor == nil {
		return
	}
	a := CompletionAudit{
		Operation:     req.Operation,
		Provider:      info.Name,
		Model:         info.Model,
		Status:        "ok",
		LatencyMS:     latency.Milliseconds(),
		PromptChars:   len([]rune(req.Prompt)),
		ResponseChars: len([]rune(resp.Text)),
	}
	if err != nil {
		a.Status = "error"
		a.ErrorType = ClassifyError(err)
		a.Error = err.Error()
		a.ResponseChars = 0
	}
	if aerr := m.auditor.RecordCompletion(context.WithoutCancel(ctx), a); aerr != nil {
		m.logger.Warn("completion audit failed", zap.Error(aerr))
	}
}

func buildCompletionProvider(ref ProviderRef, cfg config.Config) (CompletionProvider, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(cfg.EmbedDim), nil
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          ref.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			Temperature:    cfg.Temperature,
			RequireKey:     true,
		}), nil
	case "google", "gemini":
		return NewGeminiProvider(cfg.GoogleAPIKey, ref.Model, cfg.EmbeddingModel, cfg.Temperature), nil
	case "groq":
		return NewGroqProvider(cfg.GroqAPIKey, ref.Model, cfg.Temperature), nil
	case "ollama":
		p := NewOllamaProvider(cfg.OllamaBaseURL, "", cfg.Temperature)
		if ref.Model != "" {
			p.cfg.Model = ref.Model
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", ref.Raw)
	}
}

func buildEmbeddingProvider(ref ProviderRef, cfg config.Config) (EmbeddingProvider, error) {
	model := ref.Model
	if model == "" {
		model = cfg.EmbeddingModel
	}
	switch ref.Name {
	case "mock":
		return NewMockProvider(cfg.EmbedDim), nil
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			EmbeddingModel: model,
			RequireKey:     true,
		}), nil
	case "google", "gemini":
		return NewGeminiProvider(cfg.GoogleAPIKey, "", model, cfg.Temperature), nil
	case "ollama":
		return NewOllamaProvider(cfg.OllamaBaseURL, model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ref.Raw)
	}
}
