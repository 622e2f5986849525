package llm

import (
	"context"
	"fmt"
	"strings"
)

// BackendKind enumerates the supported model backends. The set is closed:
// there is no duck-typed auto-detection over free-form options, only this
// tagged union with one typed option struct per kind.
type BackendKind string

const (
	BackendOpenAI BackendKind = "openai"
	BackendGemini BackendKind = "gemini"
)

// OpenAIOptions configures the OpenAI-compatible backend.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string // empty for hosted api.openai.com
}

// GeminiOptions configures the Gemini backend.
type GeminiOptions struct {
	APIKey string
}

// BackendConfig selects exactly one backend kind with its options.
type BackendConfig struct {
	Kind   BackendKind
	OpenAI OpenAIOptions
	Gemini GeminiOptions
}

// InferKind guesses the backend from a model name when none is given
// explicitly: gemini-* goes to Gemini, everything else to OpenAI.
func InferKind(model string) BackendKind {
	if strings.HasPrefix(strings.ToLower(model), "gemini-") {
		return BackendGemini
	}
	return BackendOpenAI
}

// NewProvider constructs the provider for cfg.
func NewProvider(ctx context.Context, cfg BackendConfig) (Provider, error) {
	switch cfg.Kind {
	case BackendOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIProvider(cfg.OpenAI), nil

	case BackendGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiProvider(ctx, cfg.Gemini)

	default:
		return nil, fmt.Errorf("unknown backend: %s (allowed: openai, gemini)", cfg.Kind)
	}
}
