package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiClient is the Google Gemini LLM client.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return string(ProviderGemini)
}

// Models returns available models.
func (c *GeminiClient) Models() []string {
	return []string{
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}
}

func (c *GeminiClient) model(req *CompletionRequest) (string, *genai.GenerativeModel) {
	name := req.Model
	if name == "" {
		name = defaultGeminiModel
	}

	m := c.client.GenerativeModel(name)
	m.SetMaxOutputTokens(int32(maxTokensOrDefault(req.MaxTokens)))
	if req.Temperature > 0 {
		m.SetTemperature(float32(req.Temperature))
	}
	return name, m
}

// Complete sends a completion request.
func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	name, m := c.model(req)

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	out := &CompletionResponse{
		Content: extractText(resp),
		Model:   name,
	}
	applyGeminiMeta(out, resp)
	out.LatencyMs = time.Since(start).Milliseconds()

	return out, nil
}

// CompleteStream sends a streaming completion request.
func (c *GeminiClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()
	name, m := c.model(req)

	iter := m.GenerateContentStream(ctx, genai.Text(req.Prompt))

	out := &CompletionResponse{Model: name}
	var content strings.Builder
	index := 0

	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Gemini stream error: %w", err)
		}

		if delta := extractText(resp); delta != "" {
			content.WriteString(delta)
			if callback != nil {
				if err := callback(delta, index); err != nil {
					return nil, err
				}
			}
			index++
		}
		applyGeminiMeta(out, resp)
	}

	out.Content = content.String()
	out.LatencyMs = time.Since(start).Milliseconds()

	return out, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// First candidate only.
		break
	}
	return b.String()
}

func applyGeminiMeta(out *CompletionResponse, resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
		out.StopReason = resp.Candidates[0].FinishReason.String()
	}
}
