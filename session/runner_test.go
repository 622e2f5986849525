package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/gen"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// fastCfg keeps sections short so playback tests stay quick: one bar at
// 960 BPM is 250ms of wall clock.
func fastCfg() config.RuntimeConfig {
	return config.Default().WithTempo(960).WithBarsPerSection(1)
}

type fakeSink struct {
	mu   sync.Mutex
	sent []gomidi.Message
}

func (f *fakeSink) Send(msg gomidi.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) noteOnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ch, key, vel uint8
	n := 0
	for _, m := range f.sent {
		if m.GetNoteOn(&ch, &key, &vel) {
			n++
		}
	}
	return n
}

// stubStrategy emits one bass note per section so output is verifiable.
type stubStrategy struct {
	cfg config.RuntimeConfig
	err error
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) GenerateRaw(context.Context, gen.Request) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	steps := s.cfg.StepsPerSection()
	rest := strings.TrimSuffix(strings.Repeat(".\n", steps-1), "\n")
	return map[string]string{
		"BASS":  "C2:80\n" + rest,
		"DRUMS": "C2:100\n" + rest,
		"PIANO": "C4:70\n" + rest,
		"SAX":   "G4:85\n" + rest,
	}, nil
}

func newTestRunner(t *testing.T, cfg config.RuntimeConfig, strat gen.Strategy, sink *fakeSink, opts Options) *Runner {
	t.Helper()
	pipeline := gen.NewPipeline(strat, cfg, gen.PipelineOptions{
		MaxAttempts:  1,
		RetryBackoff: time.Millisecond,
	})
	return NewRunner(cfg, gen.NewBuffer(pipeline, opts.BufferSize), sink, opts)
}

func TestRunnerPlaysRequestedSections(t *testing.T) {
	cfg := fastCfg()
	sink := &fakeSink{}
	runner := newTestRunner(t, cfg, &stubStrategy{cfg: cfg}, sink, Options{
		Sections:   2,
		BufferSize: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Run(ctx))

	// 4 instruments x 1 note x 2 sections.
	assert.Equal(t, 8, sink.noteOnCount())
}

func TestRunnerArchivesSession(t *testing.T) {
	cfg := fastCfg()
	dir := t.TempDir()
	sink := &fakeSink{}
	runner := newTestRunner(t, cfg, &stubStrategy{cfg: cfg}, sink, Options{
		Sections:   2,
		BufferSize: 1,
		OutputDir:  dir,
		Model:      "gpt-4o-mini",
		Strategy:   "stub",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Run(ctx))

	txts, err := filepath.Glob(filepath.Join(dir, "quartet-*.txt"))
	require.NoError(t, err)
	require.Len(t, txts, 1)
	mids, err := filepath.Glob(filepath.Join(dir, "quartet-*.mid"))
	require.NoError(t, err)
	require.Len(t, mids, 1)

	// The text archive holds both sections concatenated with metadata.
	data, err := os.ReadFile(txts[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "# sections: 2")

	tracks, err := tracker.LoadFile(txts[0])
	require.NoError(t, err)
	assert.Len(t, tracks["BASS"].Steps, 2*cfg.StepsPerSection())
}

func TestRunnerFatalOnExhaustedGeneration(t *testing.T) {
	cfg := fastCfg()
	sink := &fakeSink{}
	runner := newTestRunner(t, cfg, &stubStrategy{cfg: cfg, err: errors.New("model down")}, sink, Options{
		Sections:   2,
		BufferSize: 1,
	})

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gen.ErrAttemptsExhausted))
}

func TestRunnerStopsOnCancel(t *testing.T) {
	cfg := fastCfg()
	sink := &fakeSink{}
	runner := newTestRunner(t, cfg, &stubStrategy{cfg: cfg}, sink, Options{
		Sections:   0, // endless
		BufferSize: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}

	// The hard stop silences every channel.
	sink.mu.Lock()
	defer sink.mu.Unlock()
	var ch, cc, val uint8
	silences := 0
	for _, m := range sink.sent {
		if m.GetControlChange(&ch, &cc, &val) && cc == gomidi.AllNotesOff {
			silences++
		}
	}
	assert.GreaterOrEqual(t, silences, len(cfg.Channels))
}
