package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIEmbedModel = "text-embedding-3-small"
)

// OpenAIConfig also serves OpenAI-compatible endpoints (Groq, Ollama) through
// BaseURL.
type OpenAIConfig struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Temperature    float32
	// RequireKey rejects calls when APIKey is empty.
	RequireKey bool
}

type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *openai.Client
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultOpenAIEmbedModel
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIProvider{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

func (o *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: o.cfg.Name, Model: o.cfg.Model}
	if o.cfg.RequireKey && o.cfg.APIKey == "" {
		return CompletionResponse{}, info, fmt.Errorf("%s api key missing", o.cfg.Name)
	}
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    messages,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return CompletionResponse{}, info, fmt.Errorf("%s chat completion: %w", o.cfg.Name, err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, info, fmt.Errorf("%w: %s returned no choices", ErrEmptyResponse, o.cfg.Name)
	}
	return CompletionResponse{Text: resp.Choices[0].Message.Content}, info, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: o.cfg.Name, Model: o.cfg.EmbeddingModel}
	if o.cfg.RequireKey && o.cfg.APIKey == "" {
		return nil, info, fmt.Errorf("%s api key missing", o.cfg.Name)
	}
	if len(req.Inputs) == 0 {
		return nil, info, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: req.Inputs,
		Model: openai.EmbeddingModel(o.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, info, fmt.Errorf("%s embeddings: %w", o.cfg.Name, err)
	}
	if len(resp.Data) != len(req.Inputs) {
		return nil, info, fmt.Errorf("%s returned %d embeddings for %d inputs", o.cfg.Name, len(resp.Data), len(req.Inputs))
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, 0, len(data))
	for _, d := range data {
		out = append(out, matchDimension(d.Embedding, req.Dimension))
	}
	return out, info, nil
}

// matchDimension truncates or zero-pads v to target. A non-positive target
// keeps v as is.
func matchDimension(v []float32, target int) []float32 {
	if target <= 0 || len(v) == target {
		return v
	}
	if len(v) > target {
		return v[:target]
	}
	out := make([]float32, target)
	copy(out, v)
	return out
}
