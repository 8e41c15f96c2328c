package llm

import (
	"context"
	"strings"
	"sync"
)

// StaticClient answers every prompt from a fixed list of replies, in
// rotation. It backs the seed command and tests.
type StaticClient struct {
	mu      sync.Mutex
	replies []string
	next    int
	err     error
	prompts []string
}

// NewStaticClient creates a client cycling through replies. With no
// replies it returns ErrEmptyResponse.
func NewStaticClient(replies ...string) *StaticClient {
	return &StaticClient{replies: replies}
}

// NewFailingClient creates a client whose every call fails with err.
func NewFailingClient(err error) *StaticClient {
	return &StaticClient{err: err}
}

// Name returns the provider name.
func (c *StaticClient) Name() string {
	return string(ProviderStatic)
}

// Models returns available models.
func (c *StaticClient) Models() []string {
	return []string{"static"}
}

// Prompts returns every prompt received so far.
func (c *StaticClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func (c *StaticClient) reply(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", ErrEmptyResponse
	}
	r := c.replies[c.next%len(c.replies)]
	c.next++
	return r, nil
}

// Complete returns the next canned reply.
func (c *StaticClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return c.CompleteStream(ctx, req, nil)
}

// CompleteStream returns the next canned reply, streamed word by word.
func (c *StaticClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := c.reply(req.Prompt)
	if err != nil {
		return nil, err
	}

	if callback != nil {
		for i, word := range strings.SplitAfter(text, " ") {
			if err := callback(word, i); err != nil {
				return nil, err
			}
		}
	}

	return &CompletionResponse{
		Content:    text,
		Model:      req.Model,
		TokensIn:   len(strings.Fields(req.Prompt)),
		TokensOut:  len(strings.Fields(text)),
		StopReason: "stop",
	}, nil
}
