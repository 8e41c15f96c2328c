// Package llm provides language model backend clients and the stream
// accumulator used to assemble their replies.
package llm

import (
	"context"
	"errors"
)

// StreamCallback is called for each text delta during streaming.
type StreamCallback func(token string, index int) error

// CompletionRequest represents a generation request: one prompt for one model.
type CompletionRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream sends a completion request, invoking callback for each
	// delta as it arrives. The returned response holds the full text.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderStatic    Provider = "static"
)

// ErrEmptyResponse is returned when a backend finishes without producing text.
var ErrEmptyResponse = errors.New("llm: backend returned no text")

// defaultMaxTokens applies to providers that require an explicit limit.
const defaultMaxTokens = 4096

func maxTokensOrDefault(n int) int {
	if n == 0 {
		return defaultMaxTokens
	}
	return n
}
