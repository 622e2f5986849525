package gen

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// ErrBufferClosed is returned by GetNext after Close.
var ErrBufferClosed = errors.New("section buffer closed")

// Buffer keeps generated sections ahead of playback. At most one background
// generation runs at a time; a background failure is held and surfaced on the
// next GetNext call instead of being lost.
type Buffer struct {
	pipeline *Pipeline
	capacity int

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*tracker.Section
	inFlight bool
	lastErr  error
	closed   bool
}

// NewBuffer creates a buffer holding up to capacity ready sections.
func NewBuffer(pipeline *Pipeline, capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer{pipeline: pipeline, capacity: capacity}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Prefill generates sections synchronously until the buffer holds n (bounded
// by capacity). Called once before playback starts so the first GetNext never
// waits on the model.
func (b *Buffer) Prefill(ctx context.Context, n int) error {
	if n > b.capacity {
		n = b.capacity
	}
	for i := 0; i < n; i++ {
		section, err := b.pipeline.GenerateSection(ctx)
		if err != nil {
			return err
		}
		b.mu.Lock()
		b.queue = append(b.queue, section)
		b.mu.Unlock()
		log.Printf("✅ buffered section %d/%d", i+1, n)
	}
	return nil
}

// GetNext pops the oldest ready section. If the buffer is empty it waits for
// an in-flight generation, or generates synchronously as a last resort; the
// wait aborts with ctx.Err() when ctx is cancelled. When continueBuffering is
// true a background refill starts after the pop.
//
// A background failure stored by an earlier refill is returned here, once.
func (b *Buffer) GetNext(ctx context.Context, continueBuffering bool) (*tracker.Section, error) {
	// Wake the wait loop when the caller gives up, so a cancelled session is
	// not stuck behind an in-flight model call. The broadcast happens under
	// the lock so it cannot slip between the ctx check and cond.Wait.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		case <-watchDone:
		}
	}()

	b.mu.Lock()
	for len(b.queue) == 0 {
		if b.closed {
			b.mu.Unlock()
			return nil, ErrBufferClosed
		}
		if err := ctx.Err(); err != nil {
			b.mu.Unlock()
			return nil, err
		}
		if b.lastErr != nil {
			err := b.lastErr
			b.lastErr = nil
			b.mu.Unlock()
			return nil, err
		}
		if !b.inFlight {
			break
		}
		b.cond.Wait()
	}

	if len(b.queue) == 0 {
		// Nothing ready and nothing coming: playback outran generation.
		b.mu.Unlock()
		log.Printf("⚠️  buffer empty, generating synchronously")
		section, err := b.pipeline.GenerateSection(ctx)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.maybeStartFill(ctx, continueBuffering)
		b.mu.Unlock()
		return section, nil
	}

	section := b.queue[0]
	b.queue = b.queue[1:]
	b.maybeStartFill(ctx, continueBuffering)
	b.mu.Unlock()
	return section, nil
}

// Ready reports how many sections are buffered right now.
func (b *Buffer) Ready() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Close stops background refills. An in-flight generation finishes but its
// result is discarded; waiters are released.
func (b *Buffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// maybeStartFill kicks off a background generation. Caller holds b.mu.
func (b *Buffer) maybeStartFill(ctx context.Context, continueBuffering bool) {
	if !continueBuffering || b.closed || b.inFlight || len(b.queue) >= b.capacity {
		return
	}
	b.inFlight = true
	go b.fill(ctx)
}

func (b *Buffer) fill(ctx context.Context) {
	section, err := b.pipeline.GenerateSection(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight = false
	switch {
	case err != nil:
		b.lastErr = err
	case b.closed || len(b.queue) >= b.capacity:
		// Raced with Close or a synchronous fill; drop it.
	default:
		b.queue = append(b.queue, section)
	}
	b.cond.Broadcast()
}
