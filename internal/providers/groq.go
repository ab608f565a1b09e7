package providers

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama-3.1-8b-instant"
)

// NewGroqProvider talks to Groq's OpenAI-compatible chat endpoint. Groq has no
// embeddings API.
func NewGroqProvider(apiKey, model string, temperature float32) *OpenAIProvider {
	if model == "" {
		model = defaultGroqModel
	}
	return NewOpenAIProvider(OpenAIConfig{
		Name:        "groq",
		APIKey:      apiKey,
		BaseURL:     groqBaseURL,
		Model:       model,
		Temperature: temperature,
		RequireKey:  true,
	})
}
