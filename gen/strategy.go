package gen

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/llm"
	"github.com/Conceptual-Machines/infinite-quartet-go/prompt"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// Request carries the per-attempt inputs a strategy needs.
type Request struct {
	PreviousContext string
	Direction       string
	Attempt         int // 1-based; retries harden the prompt
}

// Strategy produces one section's raw text per instrument. An instrument
// missing from the result map means the strategy could not obtain it; the
// pipeline decides whether that is recoverable.
type Strategy interface {
	Name() string
	GenerateRaw(ctx context.Context, req Request) (map[string]string, error)
}

// UsageRecorder receives token counts after each successful model call.
// *metrics.SentryMetrics satisfies it; nil disables recording.
type UsageRecorder interface {
	RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int)
}

// recordUsage forwards a response's token counts to the recorder. Backends
// that report no usage are skipped.
func recordUsage(ctx context.Context, rec UsageRecorder, model string, usage llm.TokenUsage) {
	if rec == nil || usage.TotalTokens == 0 {
		return
	}
	rec.RecordTokenUsage(ctx, model, usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
}

// formatReminder is appended to the user prompt on retry attempts.
func formatReminder(steps int) string {
	return fmt.Sprintf(
		"\n\nIMPORTANT: Respond with exactly %d lines per instrument.\n"+
			"Each line must be NOTE:VELOCITY (e.g. C2:80), a single period '.' for a rest,\n"+
			"or '^' for a tie. Do not include explanations or leave the response blank.", steps)
}

// BatchedStrategy generates all four instruments in a single model call and
// splits the response on instrument header lines.
type BatchedStrategy struct {
	Provider llm.Provider
	Builder  prompt.Builder
	Model    string
	Config   config.RuntimeConfig
	Metrics  UsageRecorder
}

// NewBatchedStrategy creates the single-call strategy.
func NewBatchedStrategy(provider llm.Provider, model string, cfg config.RuntimeConfig) *BatchedStrategy {
	return &BatchedStrategy{
		Provider: provider,
		Builder:  prompt.NewQuartetPromptBuilder(cfg),
		Model:    model,
		Config:   cfg,
	}
}

// Name returns the strategy name.
func (s *BatchedStrategy) Name() string { return "batched" }

// GenerateRaw performs the call and splits out each instrument's block.
func (s *BatchedStrategy) GenerateRaw(ctx context.Context, req Request) (map[string]string, error) {
	genReq := llm.BatchedPreset()
	genReq.Model = s.Model
	genReq.SystemPrompt = s.Builder.SystemPrompt("")
	genReq.Prompt = s.Builder.UserPrompt(req.PreviousContext, req.Direction)
	if req.Attempt > 1 {
		genReq.Prompt += formatReminder(s.Config.StepsPerSection())
	}

	resp, err := s.Provider.Generate(ctx, &genReq)
	if err != nil {
		return nil, err
	}
	recordUsage(ctx, s.Metrics, s.Model, resp.Usage)
	return splitByHeaders(resp.Text), nil
}

// splitByHeaders extracts each instrument's block from a batched response.
// Markdown is stripped first so **BASS** and fenced output still split.
// Instruments whose header never appears are simply absent from the result.
func splitByHeaders(raw string) map[string]string {
	cleaned := tracker.StripMarkdown(raw)
	out := make(map[string]string)

	for _, inst := range tracker.Instruments {
		re := regexp.MustCompile(`(?m)^` + inst + `\s*$`)
		loc := re.FindStringIndex(cleaned)
		if loc == nil {
			log.Printf("⚠️  batched output missing %s section", inst)
			continue
		}
		start := loc[1]
		end := len(cleaned)
		for _, other := range tracker.Instruments {
			if other == inst {
				continue
			}
			otherRe := regexp.MustCompile(`(?m)^` + other + `\s*$`)
			if otherLoc := otherRe.FindStringIndex(cleaned[start:]); otherLoc != nil && start+otherLoc[0] < end {
				end = start + otherLoc[0]
			}
		}
		out[inst] = strings.TrimSpace(cleaned[start:end])
	}
	return out
}
