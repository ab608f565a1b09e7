package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type CompletionRequest struct {
	// Operation names the caller, e.g. "analysis", "explore", "scoring".
	Operation string `json:"operation"`
	System    string `json:"system,omitempty"`
	Prompt    string `json:"prompt"`
}

type CompletionResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

// CompletionAudit describes one completion attempt against one provider.
type CompletionAudit struct {
	Operation     string
	Provider      string
	Model         string
	Status        string
	ErrorType     ErrorType
	Error         string
	LatencyMS     int64
	PromptChars   int
	ResponseChars int
}

type Auditor interface {
	RecordCompletion(ctx context.Context, a CompletionAudit) error
}
