package gen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/metrics"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// ErrAttemptsExhausted is returned when every generation attempt for a
// section failed. It is fatal: the caller must not keep asking for sections.
var ErrAttemptsExhausted = errors.New("section generation attempts exhausted")

const (
	// DefaultMaxAttempts bounds the retry loop per section.
	DefaultMaxAttempts = 3
	// defaultRetryBackoff is the fixed pause between attempts. Generation is
	// already seconds-long, so there is nothing to gain from exponential growth.
	defaultRetryBackoff = 200 * time.Millisecond
	// DefaultContextSteps is how many trailing steps of history each new
	// prompt carries for musical continuity.
	DefaultContextSteps = 32
)

// PipelineOptions tune the retry and continuity behavior. Zero values fall
// back to the defaults above.
type PipelineOptions struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	ContextSteps int
	Direction    string // free-text musical direction forwarded to prompts
	Metrics      *metrics.SentryMetrics
}

// Pipeline turns strategy output into validated Sections, retrying structural
// failures and keeping a rolling history window for prompt continuity.
type Pipeline struct {
	strategy     Strategy
	cfg          config.RuntimeConfig
	maxAttempts  int
	backoff      time.Duration
	contextSteps int
	direction    string
	metrics      *metrics.SentryMetrics

	mu         sync.Mutex
	history    []*tracker.Section
	historyCap int
}

// NewPipeline builds a pipeline around a strategy.
func NewPipeline(strategy Strategy, cfg config.RuntimeConfig, opts PipelineOptions) *Pipeline {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.ContextSteps <= 0 {
		opts.ContextSteps = DefaultContextSteps
	}
	historyCap := opts.ContextSteps / cfg.StepsPerSection()
	if historyCap < 1 {
		historyCap = 1
	}
	return &Pipeline{
		strategy:     strategy,
		cfg:          cfg,
		maxAttempts:  opts.MaxAttempts,
		backoff:      opts.RetryBackoff,
		contextSteps: opts.ContextSteps,
		direction:    opts.Direction,
		metrics:      opts.Metrics,
		historyCap:   historyCap,
	}
}

// GenerateSection produces the next validated section, retrying up to the
// attempt limit. On success the section joins the continuity history.
func (p *Pipeline) GenerateSection(ctx context.Context) (*tracker.Section, error) {
	prev := p.continuityContext()

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		start := time.Now()
		section, err := p.attempt(ctx, prev, attempt)
		if p.metrics != nil {
			p.metrics.RecordSectionDuration(ctx, p.strategy.Name(), time.Since(start), err == nil)
		}
		if err == nil {
			p.remember(section)
			return section, nil
		}
		lastErr = err
		log.Printf("⚠️  section attempt %d/%d failed: %v", attempt, p.maxAttempts, err)

		if attempt == p.maxAttempts {
			break
		}
		if p.metrics != nil {
			p.metrics.RecordSectionRetry(ctx, p.strategy.Name(), attempt, err.Error())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.backoff):
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, p.maxAttempts, lastErr)
}

// attempt runs one strategy call and the full repair/validation chain.
func (p *Pipeline) attempt(ctx context.Context, prev string, attempt int) (*tracker.Section, error) {
	raw, err := p.strategy.GenerateRaw(ctx, Request{
		PreviousContext: prev,
		Direction:       p.direction,
		Attempt:         attempt,
	})
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", p.strategy.Name(), err)
	}

	steps := p.cfg.StepsPerSection()
	blocks := make(map[string]string, len(tracker.Instruments))
	meaningful := false
	for _, inst := range tracker.Instruments {
		text, ok := raw[inst]
		if !ok {
			return nil, fmt.Errorf("output missing %s", inst)
		}
		block := tracker.SanitizeAndValidate(inst, text, steps)
		if tracker.HasMeaningfulContent(block) {
			meaningful = true
		}
		blocks[inst] = block
	}
	if !meaningful {
		return nil, errors.New("all instruments came back empty")
	}

	tracks, err := tracker.Parse(assembleText(blocks))
	if err != nil {
		return nil, fmt.Errorf("parse validated section: %w", err)
	}
	for _, inst := range tracker.Instruments {
		tr, ok := tracks[inst]
		if !ok || len(tr.Steps) != steps {
			return nil, fmt.Errorf("%s track incomplete after validation", inst)
		}
	}
	return &tracker.Section{Tracks: tracks, RawText: raw}, nil
}

// assembleText joins validated blocks into canonical tracker text.
func assembleText(blocks map[string]string) string {
	text := ""
	for _, inst := range tracker.Instruments {
		text += inst + "\n" + blocks[inst] + "\n\n"
	}
	return text
}

// continuityContext renders the trailing contextSteps of history as tracker
// text for the next prompt. Empty until the first section lands.
func (p *Pipeline) continuityContext() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.history) == 0 {
		return ""
	}
	combined := tracker.Concatenate(p.history)
	trimmed := make(map[string]tracker.InstrumentTrack, len(combined))
	for inst, tr := range combined {
		if len(tr.Steps) > p.contextSteps {
			tr.Steps = tr.Steps[len(tr.Steps)-p.contextSteps:]
		}
		trimmed[inst] = tr
	}
	return tracker.FormatTracks(trimmed)
}

// remember appends a section to history, evicting the oldest past capacity.
func (p *Pipeline) remember(section *tracker.Section) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = append(p.history, section)
	if len(p.history) > p.historyCap {
		p.history = p.history[len(p.history)-p.historyCap:]
	}
}
