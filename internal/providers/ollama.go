package providers

import "strings"

const (
	defaultOllamaBaseURL    = "http://localhost:11434"
	defaultOllamaEmbedModel = "nomic-embed-text"
	defaultOllamaChatModel  = "llama3.1"
)

// NewOllamaProvider uses a local Ollama server through its OpenAI-compatible
// /v1 endpoint. model selects the embedding model; short aliases such as
// "nomic" and "bge" are expanded.
func NewOllamaProvider(baseURL, model string, temperature float32) *OpenAIProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return NewOpenAIProvider(OpenAIConfig{
		Name:           "ollama",
		APIKey:         "ollama",
		BaseURL:        baseURL + "/v1",
		Model:          defaultOllamaChatModel,
		EmbeddingModel: ResolveOllamaEmbedModel(model),
		Temperature:    temperature,
	})
}

func ResolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	switch strings.ToLower(alias) {
	case "":
		return defaultOllamaEmbedModel
	case "nomic":
		return "nomic-embed-text"
	case "bge":
		return "bge-small-en-v1.5"
	case "mxbai":
		return "mxbai-embed-large"
	}
	return alias
}
