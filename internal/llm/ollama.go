package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/capitalize-ai/localchat/pkg/metrics"
)

// OllamaClient talks to a local Ollama server's generate endpoint.
type OllamaClient struct {
	baseURL      string
	httpClient   *http.Client
	defaultModel string
}

// generateRequest is the body posted to /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// NewOllamaClient creates a new Ollama client. A nil httpClient uses one
// without a global timeout; callers bound each request through ctx.
func NewOllamaClient(baseURL, defaultModel string, httpClient *http.Client) (*OllamaClient, error) {
	if baseURL == "" {
		return nil, errors.New("Ollama base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if defaultModel == "" {
		defaultModel = "llama3"
	}

	return &OllamaClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		defaultModel: defaultModel,
	}, nil
}

// Name returns the provider name.
func (c *OllamaClient) Name() string {
	return string(ProviderOllama)
}

// Models returns the configured default; Ollama serves whatever is pulled locally.
func (c *OllamaClient) Models() []string {
	return []string{c.defaultModel}
}

// Complete sends a generate request and accumulates the full reply.
func (c *OllamaClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return c.CompleteStream(ctx, req, nil)
}

// CompleteStream sends a generate request and forwards each delta to callback.
func (c *OllamaClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: req.Prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var onDelta func(string) error
	if callback != nil {
		index := 0
		onDelta = func(delta string) error {
			err := callback(delta, index)
			index++
			return err
		}
	}

	acc, err := Accumulate(resp.Body, onDelta)
	if skipped := acc.Skipped(); skipped > 0 {
		metrics.FragmentsSkippedTotal.Add(float64(skipped))
	}
	if err != nil {
		return nil, fmt.Errorf("ollama stream read failed: %w", err)
	}

	out := acc.Result()
	if out.Content == "" {
		if msg := acc.Err(); msg != "" {
			return nil, fmt.Errorf("ollama error: %s", msg)
		}
		return nil, ErrEmptyResponse
	}
	if out.Model == "" {
		out.Model = model
	}
	out.LatencyMs = time.Since(start).Milliseconds()

	return out, nil
}
