package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel      = "gemini-1.5-pro"
	defaultGeminiEmbedModel = "gemini-embedding-001"
)

// GeminiProvider calls the Gemini API. The client is created on first use so
// a missing key only fails the calls that need it.
type GeminiProvider struct {
	apiKey      string
	model       string
	embedModel  string
	temperature float32

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiProvider(apiKey, model, embedModel string, temperature float32) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	if embedModel == "" {
		embedModel = defaultGeminiEmbedModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model, embedModel: embedModel, temperature: temperature}
}

func (g *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		if g.apiKey == "" {
			g.initErr = fmt.Errorf("gemini api key missing")
			return
		}
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.client, g.initErr
}

func (g *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.model}
	client, err := g.getClient(ctx)
	if err != nil {
		return CompletionResponse{}, info, err
	}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return CompletionResponse{}, info, fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return CompletionResponse{}, info, fmt.Errorf("%w: gemini returned no text", ErrEmptyResponse)
	}
	return CompletionResponse{Text: text}, info, nil
}

func (g *GeminiProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.embedModel}
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, info, err
	}
	if len(req.Inputs) == 0 {
		return nil, info, nil
	}
	contents := make([]*genai.Content, len(req.Inputs))
	for i, text := range req.Inputs {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if req.Dimension > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(req.Dimension))
	}
	resp, err := client.Models.EmbedContent(ctx, g.embedModel, contents, cfg)
	if err != nil {
		return nil, info, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(req.Inputs) {
		return nil, info, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(req.Inputs))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = matchDimension(e.Values, req.Dimension)
	}
	return out, info, nil
}
