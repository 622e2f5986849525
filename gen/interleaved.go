package gen

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/llm"
	"github.com/Conceptual-Machines/infinite-quartet-go/prompt"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

var (
	beatHeaderRe      = regexp.MustCompile(`(?m)^\[BEAT\s+\d+\]\s*$`)
	interleavedLineRe = regexp.MustCompile(`^(BASS|DRUMS|PIANO|SAX):\s*(.+)$`)
)

// InterleavedStrategy asks the model for beat-grouped output where every beat
// block lists one line per instrument with that beat's steps side by side,
// then de-interleaves the blocks back into per-instrument tracks.
type InterleavedStrategy struct {
	Provider llm.Provider
	Builder  *prompt.InterleavedPromptBuilder
	Model    string
	Config   config.RuntimeConfig
	Metrics  UsageRecorder
}

// NewInterleavedStrategy creates the beat-grouped strategy.
func NewInterleavedStrategy(provider llm.Provider, model string, cfg config.RuntimeConfig) *InterleavedStrategy {
	return &InterleavedStrategy{
		Provider: provider,
		Builder:  prompt.NewInterleavedPromptBuilder(cfg),
		Model:    model,
		Config:   cfg,
	}
}

// Name returns the strategy name.
func (s *InterleavedStrategy) Name() string { return "interleaved" }

// GenerateRaw performs the call and de-interleaves [BEAT n] blocks.
func (s *InterleavedStrategy) GenerateRaw(ctx context.Context, req Request) (map[string]string, error) {
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
	return s.deinterleave(resp.Text), nil
}

// deinterleave walks the beat blocks in order and appends each instrument's
// steps to its track. Lines that match no instrument are ignored; an
// instrument with no recognized lines at all ends up absent from the map.
func (s *InterleavedStrategy) deinterleave(raw string) map[string]string {
	cleaned := tracker.StripMarkdown(raw)
	steps := make(map[string][]string)

	inBlock := false
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if beatHeaderRe.MatchString(line) {
			inBlock = true
			continue
		}
		if !inBlock || line == "" {
			continue
		}
		m := interleavedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		instrument := m[1]
		steps[instrument] = append(steps[instrument], strings.Fields(m[2])...)
	}

	out := make(map[string]string, len(steps))
	for inst, stepList := range steps {
		out[inst] = strings.Join(stepList, "\n")
	}
	for _, inst := range tracker.Instruments {
		if _, ok := out[inst]; !ok {
			log.Printf("⚠️  interleaved output missing %s lines", inst)
		}
	}
	return out
}
