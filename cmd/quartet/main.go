package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/gen"
	"github.com/Conceptual-Machines/infinite-quartet-go/llm"
	"github.com/Conceptual-Machines/infinite-quartet-go/metrics"
	"github.com/Conceptual-Machines/infinite-quartet-go/midi"
	"github.com/Conceptual-Machines/infinite-quartet-go/session"
)

var (
	model        = flag.String("model", "gpt-4o-mini", "LLM model name (gemini-* routes to the Gemini backend)")
	backend      = flag.String("backend", "auto", "backend: auto|openai|gemini")
	baseURL      = flag.String("base-url", "", "OpenAI-compatible base URL (empty = hosted API)")
	strategy     = flag.String("strategy", "parallel", "generation strategy: parallel|batched|interleaved")
	direction    = flag.String("direction", "", "free-text musical direction for the prompts")
	tempo        = flag.Int("tempo", 120, "tempo in BPM")
	bars         = flag.Int("bars", 2, "bars per generated section")
	sections     = flag.Int("sections", 0, "sections to play (0 = run until interrupted)")
	bufferSize   = flag.Int("buffer", 2, "sections generated ahead of playback")
	contextSteps = flag.Int("context-steps", gen.DefaultContextSteps, "trailing steps of history carried into each prompt")
	noSwing      = flag.Bool("no-swing", false, "disable swing timing")
	swingRatio   = flag.Float64("swing-ratio", 0.67, "swing ratio (0.5 = straight, 0.67 = 2:1)")
	noteMode     = flag.String("note-mode", "trigger", "note duration mode: trigger|sustain")
	octaveShift  = flag.Int("octave-shift", 0, "shift melodic instruments by whole octaves")
	midiPort     = flag.String("midi-port", "", "system MIDI output port name (empty = first available)")
	virtual      = flag.Bool("virtual", true, "create a virtual MIDI output instead of opening a system port")
	virtualName  = flag.String("virtual-name", "Infinite Quartet", "name of the virtual MIDI output")
	outputDir    = flag.String("out", "", "directory for the session archive (.txt + .mid); empty = don't save")
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: Could not load .env file: %v", err)
	}
	flag.Parse()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Printf("⚠️  sentry init failed: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run() error {
	cfg := config.Default().
		WithTempo(*tempo).
		WithBarsPerSection(*bars).
		WithSwing(!*noSwing, *swingRatio).
		WithNoteMode(config.NoteMode(*noteMode)).
		WithMelodicOctaveShift(*octaveShift)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := buildProvider(ctx)
	if err != nil {
		return err
	}

	sentryMetrics := metrics.NewSentryMetrics()
	strat, err := buildStrategy(provider, cfg, sentryMetrics)
	if err != nil {
		return err
	}

	pipeline := gen.NewPipeline(strat, cfg, gen.PipelineOptions{
		ContextSteps: *contextSteps,
		Direction:    *direction,
		Metrics:      sentryMetrics,
	})
	buffer := gen.NewBuffer(pipeline, *bufferSize)

	var sink midi.Sink
	if *virtual {
		sink, err = midi.OpenVirtual(*virtualName)
	} else {
		sink, err = midi.OpenPort(*midiPort)
	}
	if err != nil {
		return err
	}
	defer sink.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("⚠️  interrupted, stopping...")
		cancel()
	}()

	log.Printf("⏱️  %s via %s, %d BPM, %d steps/section, strategy=%s",
		*model, provider.Name(), cfg.Tempo, cfg.StepsPerSection(), strat.Name())

	runner := session.NewRunner(cfg, buffer, sink, session.Options{
		Sections:   *sections,
		BufferSize: *bufferSize,
		OutputDir:  *outputDir,
		Model:      *model,
		Strategy:   strat.Name(),
	})
	return runner.Run(ctx)
}

func buildProvider(ctx context.Context) (llm.Provider, error) {
	kind := llm.BackendKind(*backend)
	if *backend == "auto" {
		kind = llm.InferKind(*model)
	}

	backendCfg := llm.BackendConfig{Kind: kind}
	switch kind {
	case llm.BackendOpenAI:
		backendCfg.OpenAI = llm.OpenAIOptions{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: *baseURL,
		}
	case llm.BackendGemini:
		backendCfg.Gemini = llm.GeminiOptions{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		}
	}
	return llm.NewProvider(ctx, backendCfg)
}

func buildStrategy(provider llm.Provider, cfg config.RuntimeConfig, rec gen.UsageRecorder) (gen.Strategy, error) {
	switch *strategy {
	case "parallel":
		s := gen.NewParallelStrategy(provider, *model, cfg)
		s.Metrics = rec
		return s, nil
	case "batched":
		s := gen.NewBatchedStrategy(provider, *model, cfg)
		s.Metrics = rec
		return s, nil
	case "interleaved":
		s := gen.NewInterleavedStrategy(provider, *model, cfg)
		s.Metrics = rec
		return s, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s (allowed: parallel, batched, interleaved)", *strategy)
	}
}
