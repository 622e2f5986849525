package gen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
)

// countingStrategy always succeeds and tracks concurrent calls.
type countingStrategy struct {
	cfg        config.RuntimeConfig
	delay      time.Duration
	calls      atomic.Int32
	concurrent atomic.Int32
	maxSeen    atomic.Int32
}

func (s *countingStrategy) Name() string { return "counting" }

func (s *countingStrategy) GenerateRaw(context.Context, Request) (map[string]string, error) {
	cur := s.concurrent.Add(1)
	defer s.concurrent.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if cur <= seen || s.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.calls.Add(1)
	return validOutput(s.cfg, "C2:80"), nil
}

func newTestBuffer(t *testing.T, strat Strategy, capacity int) *Buffer {
	t.Helper()
	cfg := testCfg()
	p := NewPipeline(strat, cfg, PipelineOptions{MaxAttempts: 1, RetryBackoff: time.Millisecond})
	return NewBuffer(p, capacity)
}

func TestBufferPrefillRespectsCapacity(t *testing.T) {
	strat := &countingStrategy{cfg: testCfg()}
	buf := newTestBuffer(t, strat, 2)

	require.NoError(t, buf.Prefill(context.Background(), 5))
	assert.Equal(t, 2, buf.Ready(), "prefill never exceeds capacity")
	assert.Equal(t, int32(2), strat.calls.Load())
}

func TestBufferGetNextRefillsInBackground(t *testing.T) {
	strat := &countingStrategy{cfg: testCfg()}
	buf := newTestBuffer(t, strat, 2)
	ctx := context.Background()

	require.NoError(t, buf.Prefill(ctx, 2))
	section, err := buf.GetNext(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, section)

	require.Eventually(t, func() bool { return buf.Ready() == 2 },
		time.Second, time.Millisecond, "background fill tops the buffer back up")
}

func TestBufferNeverExceedsCapacityUnderLoad(t *testing.T) {
	strat := &countingStrategy{cfg: testCfg(), delay: time.Millisecond}
	buf := newTestBuffer(t, strat, 2)
	ctx := context.Background()

	require.NoError(t, buf.Prefill(ctx, 2))
	for i := 0; i < 6; i++ {
		_, err := buf.GetNext(ctx, true)
		require.NoError(t, err)
		assert.LessOrEqual(t, buf.Ready(), 2)
	}
	assert.Equal(t, int32(1), strat.maxSeen.Load(), "at most one generation in flight")
}

func TestBufferSynchronousFallback(t *testing.T) {
	strat := &countingStrategy{cfg: testCfg()}
	buf := newTestBuffer(t, strat, 2)

	section, err := buf.GetNext(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, section, "an empty idle buffer generates synchronously")
	assert.Equal(t, 0, buf.Ready())
}

// failAfterStrategy succeeds n times, then always fails.
type failAfterStrategy struct {
	cfg config.RuntimeConfig
	mu  sync.Mutex
	ok  int
}

func (s *failAfterStrategy) Name() string { return "fail-after" }

func (s *failAfterStrategy) GenerateRaw(context.Context, Request) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ok > 0 {
		s.ok--
		return validOutput(s.cfg, "C2:80"), nil
	}
	return nil, errors.New("model unavailable")
}

func TestBufferSurfacesBackgroundError(t *testing.T) {
	strat := &failAfterStrategy{cfg: testCfg(), ok: 1}
	buf := newTestBuffer(t, strat, 1)
	ctx := context.Background()

	require.NoError(t, buf.Prefill(ctx, 1))

	// This pop starts a background fill that will fail.
	_, err := buf.GetNext(ctx, true)
	require.NoError(t, err)

	// The stored failure surfaces on the next call instead of being lost.
	_, err = buf.GetNext(ctx, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAttemptsExhausted))
}

// blockingStrategy succeeds immediately once, then parks until released.
type blockingStrategy struct {
	cfg     config.RuntimeConfig
	release chan struct{}
	calls   atomic.Int32
}

func (s *blockingStrategy) Name() string { return "blocking" }

func (s *blockingStrategy) GenerateRaw(context.Context, Request) (map[string]string, error) {
	if s.calls.Add(1) == 1 {
		return validOutput(s.cfg, "C2:80"), nil
	}
	<-s.release
	return validOutput(s.cfg, "C2:80"), nil
}

func TestBufferGetNextAbortsOnCancel(t *testing.T) {
	strat := &blockingStrategy{cfg: testCfg(), release: make(chan struct{})}
	defer close(strat.release)
	buf := newTestBuffer(t, strat, 1)

	require.NoError(t, buf.Prefill(context.Background(), 1))

	// This pop starts a background fill that blocks indefinitely.
	_, err := buf.GetNext(context.Background(), true)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strat.calls.Load() == 2 },
		time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := buf.GetNext(ctx, true)
		result <- err
	}()

	time.Sleep(20 * time.Millisecond) // let the call reach the wait
	cancel()

	select {
	case err := <-result:
		assert.True(t, errors.Is(err, context.Canceled), "the wait aborts without outliving the model call")
	case <-time.After(time.Second):
		t.Fatal("GetNext did not return after cancellation")
	}
}

func TestBufferClose(t *testing.T) {
	strat := &countingStrategy{cfg: testCfg()}
	buf := newTestBuffer(t, strat, 1)
	ctx := context.Background()

	require.NoError(t, buf.Prefill(ctx, 1))
	buf.Close()

	// Buffered work can still drain after close.
	_, err := buf.GetNext(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), strat.calls.Load(), "no refill starts after close")

	_, err = buf.GetNext(ctx, true)
	assert.True(t, errors.Is(err, ErrBufferClosed))
}
