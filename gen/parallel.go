package gen

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/llm"
	"github.com/Conceptual-Machines/infinite-quartet-go/prompt"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// ParallelStrategy makes one model call per instrument, concurrently.
// A single failed instrument is filled with rests so the section survives;
// the section only fails when every instrument fails.
type ParallelStrategy struct {
	Provider llm.Provider
	Builder  *prompt.ParallelPromptBuilder
	Model    string
	Config   config.RuntimeConfig
	Metrics  UsageRecorder
}

// NewParallelStrategy creates the per-instrument fan-out strategy.
func NewParallelStrategy(provider llm.Provider, model string, cfg config.RuntimeConfig) *ParallelStrategy {
	return &ParallelStrategy{
		Provider: provider,
		Builder:  prompt.NewParallelPromptBuilder(cfg),
		Model:    model,
		Config:   cfg,
	}
}

// Name returns the strategy name.
func (s *ParallelStrategy) Name() string { return "parallel" }

// GenerateRaw fans out one goroutine per instrument and collects results.
func (s *ParallelStrategy) GenerateRaw(ctx context.Context, req Request) (map[string]string, error) {
	type result struct {
		instrument string
		text       string
		usage      llm.TokenUsage
		err        error
	}

	results := make(chan result, len(tracker.Instruments))
	var wg sync.WaitGroup

	for _, inst := range tracker.Instruments {
		wg.Add(1)
		go func(instrument string) {
			defer wg.Done()

			genReq := llm.PresetFor(instrument)
			genReq.Model = s.Model
			genReq.SystemPrompt = s.Builder.SystemPrompt(instrument)
			genReq.Prompt = s.Builder.UserPrompt(req.PreviousContext, req.Direction)
			if req.Attempt > 1 {
				genReq.Prompt += formatReminder(s.Config.StepsPerSection())
			}

			resp, err := s.Provider.Generate(ctx, &genReq)
			if err != nil {
				results <- result{instrument: instrument, err: err}
				return
			}
			results <- result{instrument: instrument, text: resp.Text, usage: resp.Usage}
		}(inst)
	}

	wg.Wait()
	close(results)

	out := make(map[string]string, len(tracker.Instruments))
	failed := 0
	for r := range results {
		if r.err != nil {
			log.Printf("⚠️  %s generation failed, filling with rests: %v", r.instrument, r.err)
			out[r.instrument] = restBlock(s.Config.StepsPerSection())
			failed++
			continue
		}
		recordUsage(ctx, s.Metrics, s.Model, r.usage)
		out[r.instrument] = r.text
	}

	if failed == len(tracker.Instruments) {
		return nil, fmt.Errorf("all %d instrument generations failed", failed)
	}
	return out, nil
}

// restBlock builds an all-rest track of the given length.
func restBlock(steps int) string {
	lines := make([]string, steps)
	for i := range lines {
		lines[i] = tracker.Rest
	}
	return strings.Join(lines, "\n")
}
