package llm

import "context"

// GenerationRequest is one text-generation call to a model backend.
type GenerationRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	Stop         []string
}

// TokenUsage reports token counts for a completed generation.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// GenerationResponse is the raw text a backend produced.
type GenerationResponse struct {
	Text  string
	Usage TokenUsage
}

// Provider is a model backend. Failures of any kind are returned as errors;
// the generation pipeline treats them as retryable structural failures and
// never inspects the cause.
type Provider interface {
	Name() string
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)
}
