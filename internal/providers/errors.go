package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"reportrag/internal/models"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
	ErrorEmpty     ErrorType = "empty"
)

// ErrEmptyResponse marks a provider reply with no usable text.
var ErrEmptyResponse = errors.New("empty completion response")

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrEmptyResponse) {
		return ErrorEmpty
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 && strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			return ErrorQuota
		case apiErr.HTTPStatusCode == 429:
			return ErrorRate
		case apiErr.HTTPStatusCode >= 500:
			return ErrorTransient
		}
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "resource_exhausted"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context length"), strings.Contains(e, "context window"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

type Attempt struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	Type     ErrorType `json:"type"`
	Err      string    `json:"error"`
}

// ProviderError is returned once every configured provider has failed.
type ProviderError struct {
	Operation string
	Attempts  []Attempt
}

func (e *ProviderError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s(%s): %s", a.Provider, a.Type, a.Err))
	}
	return fmt.Sprintf("%s: all providers failed for %s: %s", models.ErrProvider, e.Operation, strings.Join(parts, "; "))
}

func (e *ProviderError) Unwrap() error { return models.ErrProvider }
