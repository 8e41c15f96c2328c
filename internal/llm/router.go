package llm

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Router dispatches requests to a provider chosen by the model tag.
// Tags without a configured provider go to the default client.
type Router struct {
	fallback  Client
	providers map[Provider]Client
}

// NewRouter creates a router around the default backend.
func NewRouter(fallback Client) (*Router, error) {
	if fallback == nil {
		return nil, errors.New("default LLM client is required")
	}
	return &Router{
		fallback:  fallback,
		providers: make(map[Provider]Client),
	}, nil
}

// Register adds a provider. A nil client is ignored so optional providers
// can be registered unconditionally.
func (r *Router) Register(p Provider, c Client) {
	if c == nil {
		return
	}
	r.providers[p] = c
}

// isReasoningTag reports whether m is family or a dated/sized variant of it
// such as "o1-mini", leaving local tags like "o1x:7b" to Ollama.
func isReasoningTag(m, family string) bool {
	return m == family || strings.HasPrefix(m, family+"-")
}

// ProviderFor maps a model tag to the provider family that serves it.
func ProviderFor(model string) Provider {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gpt-"), isReasoningTag(m, "o1"), isReasoningTag(m, "o3"):
		return ProviderOpenAI
	case strings.HasPrefix(m, "gemini-"):
		return ProviderGemini
	default:
		return ProviderOllama
	}
}

// Resolve returns the client that will serve model.
func (r *Router) Resolve(model string) Client {
	if c, ok := r.providers[ProviderFor(model)]; ok {
		return c
	}
	return r.fallback
}

// Name returns the provider name.
func (r *Router) Name() string {
	return "router"
}

// Models returns the union of every registered provider's models.
func (r *Router) Models() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(c Client) {
		for _, m := range c.Models() {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}

	add(r.fallback)
	for _, c := range r.providers {
		add(c)
	}
	sort.Strings(out)
	return out
}

// Complete routes a completion request.
func (r *Router) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return r.Resolve(req.Model).Complete(ctx, req)
}

// CompleteStream routes a streaming completion request.
func (r *Router) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	return r.Resolve(req.Model).CompleteStream(ctx, req, callback)
}
