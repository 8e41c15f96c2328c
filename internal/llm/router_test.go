package llm

import (
	"context"
	"reflect"
	"testing"
)

func TestProviderFor(t *testing.T) {
	tests := []struct {
		model string
		want  Provider
	}{
		{"llama3", ProviderOllama},
		{"mistral:7b", ProviderOllama},
		{"claude-3-5-haiku-20241022", ProviderAnthropic},
		{"gpt-4o", ProviderOpenAI},
		{"GPT-3.5-turbo", ProviderOpenAI},
		{"o1-mini", ProviderOpenAI},
		{"o1", ProviderOpenAI},
		{"o3-mini-2025-01-31", ProviderOpenAI},
		{"o1x:7b", ProviderOllama},
		{"o3llama", ProviderOllama},
		{"gemini-1.5-pro", ProviderGemini},
		{"", ProviderOllama},
	}

	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			if got := ProviderFor(tc.model); got != tc.want {
				t.Errorf("ProviderFor(%q) = %q, want %q", tc.model, got, tc.want)
			}
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	local := NewStaticClient("from local")
	hosted := NewStaticClient("from hosted")

	router, err := NewRouter(local)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	router.Register(ProviderOpenAI, hosted)
	router.Register(ProviderAnthropic, nil)

	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", "from hosted"},
		{"llama3", "from local"},
		// Unconfigured provider falls back to the default backend.
		{"claude-3-opus-20240229", "from local"},
	}

	for _, tc := range tests {
		resp, err := router.Complete(context.Background(), &CompletionRequest{Model: tc.model, Prompt: "x"})
		if err != nil {
			t.Fatalf("Complete(%s): %v", tc.model, err)
		}
		if resp.Content != tc.want {
			t.Errorf("model %s: expected %q, got %q", tc.model, tc.want, resp.Content)
		}
	}
}

func TestRouterModels(t *testing.T) {
	router, _ := NewRouter(NewStaticClient())
	router.Register(ProviderStatic, NewStaticClient())

	if got := router.Models(); !reflect.DeepEqual(got, []string{"static"}) {
		t.Errorf("expected deduplicated model list, got %v", got)
	}
}

func TestNewRouterRequiresFallback(t *testing.T) {
	if _, err := NewRouter(nil); err == nil {
		t.Fatal("expected error")
	}
}
