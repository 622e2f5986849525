package midi

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
)

// pollInterval bounds how long the dispatch loop sleeps between checks, so a
// Stop or a freshly scheduled section is noticed promptly.
const pollInterval = 10 * time.Millisecond

// Scheduler dispatches timed events against a wall clock. One consumer loop
// drains the queue in time order; Stop is a hard cutoff that discards
// everything still pending and silences all channels.
type Scheduler struct {
	sink Sink
	cfg  config.RuntimeConfig

	mu      sync.Mutex
	queue   []TimedEvent
	started time.Time
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler writing to sink.
func NewScheduler(sink Sink, cfg config.RuntimeConfig) *Scheduler {
	return &Scheduler{sink: sink, cfg: cfg}
}

// Start records the playback epoch and launches the dispatch loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.started = time.Now()
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run()
}

// Schedule queues events whose At offsets are relative to the playback epoch.
func (s *Scheduler) Schedule(events []TimedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, events...)
	sort.SliceStable(s.queue, func(i, j int) bool { return s.queue[i].At < s.queue[j].At })
}

// Elapsed is the time since playback started.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return time.Since(s.started)
}

// QueuedAhead reports how far past the current clock the queue extends.
func (s *Scheduler) QueuedAhead() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || len(s.queue) == 0 {
		return 0
	}
	ahead := s.queue[len(s.queue)-1].At - time.Since(s.started)
	if ahead < 0 {
		return 0
	}
	return ahead
}

// Stop halts dispatch immediately. Pending events are discarded, not played
// out, and every channel gets All Notes Off.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.queue = nil
	s.mu.Unlock()

	<-done
	SilenceAll(s.sink, s.cfg)
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		s.mu.Lock()
		now := time.Since(s.started)
		var due []TimedEvent
		for len(s.queue) > 0 && s.queue[0].At <= now {
			due = append(due, s.queue[0])
			s.queue = s.queue[1:]
		}
		wait := pollInterval
		if len(s.queue) > 0 {
			if next := s.queue[0].At - now; next < wait {
				wait = next
			}
		}
		s.mu.Unlock()

		for _, ev := range due {
			if err := s.sink.Send(ev.Msg); err != nil {
				log.Printf("⚠️  MIDI send failed: %v", err)
			}
		}

		select {
		case <-s.stop:
			return
		case <-time.After(wait):
		}
	}
}
