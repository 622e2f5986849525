package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const providerNameGemini = "gemini"

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return providerNameGemini }

// Generate performs one blocking generation call.
func (p *GeminiProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()
	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)

	cfg := &genai.GenerateContentConfig{
		StopSequences: request.Stop,
	}
	if request.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(request.SystemPrompt, genai.RoleUser)
	}
	if request.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(request.Temperature))
	}
	if request.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(request.TopP))
	}

	span := transaction.StartChild("gemini.api_call")
	resp, err := p.client.Models.GenerateContent(ctx, request.Model, genai.Text(request.Prompt), cfg)
	span.Finish()

	apiDuration := time.Since(startTime)
	if err != nil {
		log.Printf("❌ gemini request failed after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini response contained no text")
	}

	var usage TokenUsage
	if resp.UsageMetadata != nil {
		usage = TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	log.Printf("⏱️  gemini call completed in %v (tokens: in=%d out=%d)",
		apiDuration, usage.InputTokens, usage.OutputTokens)
	transaction.SetTag("success", "true")

	return &GenerationResponse{Text: text, Usage: usage}, nil
}
