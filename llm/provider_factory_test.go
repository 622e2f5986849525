package llm

import (
	"context"
	"testing"
)

func TestInferKind(t *testing.T) {
	tests := []struct {
		model    string
		expected BackendKind
	}{
		{"gpt-4o-mini", BackendOpenAI},
		{"gpt-4.1", BackendOpenAI},
		{"o3-mini", BackendOpenAI},
		{"gemini-2.0-flash", BackendGemini},
		{"Gemini-1.5-pro", BackendGemini},
		{"llama-3.1-70b", BackendOpenAI}, // OpenAI-compatible endpoints
	}

	for _, tt := range tests {
		if got := InferKind(tt.model); got != tt.expected {
			t.Errorf("InferKind(%q) = %s, expected %s", tt.model, got, tt.expected)
		}
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	ctx := context.Background()

	if _, err := NewProvider(ctx, BackendConfig{Kind: BackendOpenAI}); err == nil {
		t.Error("expected error for missing OpenAI key")
	}
	if _, err := NewProvider(ctx, BackendConfig{Kind: BackendGemini}); err == nil {
		t.Error("expected error for missing Gemini key")
	}
	if _, err := NewProvider(ctx, BackendConfig{Kind: "cohere"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewProviderOpenAI(t *testing.T) {
	p, err := NewProvider(context.Background(), BackendConfig{
		Kind:   BackendOpenAI,
		OpenAI: OpenAIOptions{APIKey: "test-key"},
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, expected openai", p.Name())
	}
}
