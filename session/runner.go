package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/gen"
	"github.com/Conceptual-Machines/infinite-quartet-go/midi"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// Options control one playback session.
type Options struct {
	Sections   int    // number of sections to play; 0 = run until cancelled
	BufferSize int    // sections generated ahead of playback
	OutputDir  string // when set, the session is archived here on shutdown
	Model      string // recorded in output metadata
	Strategy   string // recorded in output metadata
}

// Runner owns the live loop: it pulls sections from the buffer, converts them
// and hands them to the scheduler, keeping generation exactly bufferSize
// sections ahead of the playback clock.
type Runner struct {
	cfg       config.RuntimeConfig
	buffer    *gen.Buffer
	sink      midi.Sink
	converter *midi.Converter
	scheduler *midi.Scheduler
	opts      Options

	played []*tracker.Section
}

// NewRunner wires a session together.
func NewRunner(cfg config.RuntimeConfig, buffer *gen.Buffer, sink midi.Sink, opts Options) *Runner {
	if opts.BufferSize < 1 {
		opts.BufferSize = 2
	}
	return &Runner{
		cfg:       cfg,
		buffer:    buffer,
		sink:      sink,
		converter: midi.NewConverter(cfg),
		scheduler: midi.NewScheduler(sink, cfg),
		opts:      opts,
	}
}

// Run plays the session until the section count is reached or ctx is
// cancelled. A cancellation is a hard stop: pending events are discarded and
// all channels silenced. Output archiving happens in both cases.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		if rec := recover(); rec != nil {
			midi.SilenceAll(r.sink, r.cfg)
			panic(rec)
		}
	}()

	log.Printf("⏱️  prefilling %d sections...", r.opts.BufferSize)
	if err := r.buffer.Prefill(ctx, r.opts.BufferSize); err != nil {
		return fmt.Errorf("prefill: %w", err)
	}

	r.scheduler.Start()
	defer r.scheduler.Stop()
	defer r.buffer.Close()

	lookAhead := time.Duration(r.opts.BufferSize) * r.cfg.SectionDuration()

	for i := 0; r.opts.Sections == 0 || i < r.opts.Sections; i++ {
		base := time.Duration(i) * r.cfg.SectionDuration()

		// Never schedule further ahead of the playback clock than the buffer
		// is allowed to cover.
		for base-r.scheduler.Elapsed() >= lookAhead {
			select {
			case <-ctx.Done():
				return r.finish(ctx)
			case <-time.After(r.cfg.StepDuration()):
			}
		}
		select {
		case <-ctx.Done():
			return r.finish(ctx)
		default:
		}

		more := r.opts.Sections == 0 || i+1 < r.opts.Sections
		section, err := r.buffer.GetNext(ctx, more)
		if err != nil {
			r.archive()
			return fmt.Errorf("section %d: %w", i+1, err)
		}

		events := r.converter.ConvertSection(section)
		for j := range events {
			events[j].At += base
		}
		r.scheduler.Schedule(events)
		r.played = append(r.played, section)
		log.Printf("✅ section %d scheduled (%d buffered ahead)", i+1, r.buffer.Ready())
	}

	return r.finish(ctx)
}

// finish drains the scheduler on a natural end, or cuts off immediately on
// cancellation, then archives whatever played.
func (r *Runner) finish(ctx context.Context) error {
	if ctx.Err() == nil {
		for r.scheduler.QueuedAhead() > 0 {
			select {
			case <-ctx.Done():
				r.archive()
				return nil
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
	r.archive()
	return nil
}

// archive writes the played sections as tracker text and as a standard MIDI
// file. Skipped when no output directory is configured or nothing played.
func (r *Runner) archive() {
	if r.opts.OutputDir == "" || len(r.played) == 0 {
		return
	}
	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		log.Printf("❌ create output dir: %v", err)
		return
	}

	stamp := time.Now().Format("20060102-150405")
	base := filepath.Join(r.opts.OutputDir, "quartet-"+stamp)
	combined := tracker.Concatenate(r.played)
	metadata := map[string]string{
		"generated": time.Now().Format(time.RFC3339),
		"model":     r.opts.Model,
		"strategy":  r.opts.Strategy,
		"tempo":     fmt.Sprintf("%d", r.cfg.Tempo),
		"swing":     fmt.Sprintf("%v (%.2f)", r.cfg.SwingEnabled, r.cfg.SwingRatio),
		"sections":  fmt.Sprintf("%d", len(r.played)),
	}

	if err := tracker.SaveTracks(combined, base+".txt", metadata); err != nil {
		log.Printf("❌ save tracker text: %v", err)
	} else {
		log.Printf("✅ saved %s.txt", base)
	}
	if err := midi.WriteSMF(combined, r.cfg, base+".mid"); err != nil {
		log.Printf("❌ save MIDI file: %v", err)
	} else {
		log.Printf("✅ saved %s.mid", base)
	}
}
