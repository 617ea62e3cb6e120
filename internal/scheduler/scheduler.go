package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/axiomson/axiomson/internal/score"
)

// DefaultCapacity is the number of equations that may be active at once.
const DefaultCapacity = 3

// Phase is a submission's position in its lifecycle.
type Phase int

const (
	// PhaseQueued means the submission is waiting for a free slot.
	PhaseQueued Phase = iota + 1
	// PhaseActive means the submission's lifetime timer is running.
	PhaseActive
	// PhaseFinished is terminal; a submission is never revisited.
	PhaseFinished
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseQueued:
		return "queued"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Admission reports where a submission landed.
type Admission struct {
	Token         string
	Phase         Phase // PhaseActive or PhaseQueued
	QueuePosition int   // 1-based position when queued, 0 when active
}

// entry is one tracked submission.
type entry struct {
	token string
	eq    score.Equation
	phase Phase
}

// Scheduler admits equations into a capacity-limited active set and
// queues the rest in arrival order.
//
// Thread-safety model:
//   - Submit, Status, Idle, Wait: safe from any goroutine
//   - lifetime timers re-enter through the same mutex on their own
//     goroutines; no state is touched outside it
type Scheduler struct {
	mu       sync.Mutex
	capacity int
	active   []*entry
	queue    []*entry
	tokens   score.TokenGenerator
	logger   *slog.Logger

	// signal wakes Wait after any completion. Buffered with size 1 so
	// multiple completions coalesce into one wakeup.
	signal chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCapacity overrides the active-set capacity.
// Non-positive values keep the default.
func WithCapacity(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithTokenGenerator overrides the submission token generator (tests).
func WithTokenGenerator(g score.TokenGenerator) Option {
	return func(s *Scheduler) {
		s.tokens = g
	}
}

// WithLogger sets the logger for admission and completion events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a Scheduler with capacity DefaultCapacity.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		capacity: DefaultCapacity,
		tokens:   score.UUIDv7Generator{},
		logger:   slog.Default(),
		signal:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit admits eq if the active set has room and queues it otherwise.
// Submissions always succeed.
func (s *Scheduler) Submit(eq score.Equation) Admission {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{token: s.tokens.Generate(), eq: eq}
	if len(s.active) < s.capacity {
		s.admitLocked(e)
		return Admission{Token: e.token, Phase: PhaseActive}
	}

	e.phase = PhaseQueued
	s.queue = append(s.queue, e)
	s.logger.Info("queued equation",
		"name", eq.Name, "token", e.token, "position", len(s.queue))
	return Admission{Token: e.token, Phase: PhaseQueued, QueuePosition: len(s.queue)}
}

// admitLocked moves e into the active set and starts its lifetime timer.
// Caller holds s.mu.
func (s *Scheduler) admitLocked(e *entry) {
	e.phase = PhaseActive
	s.active = append(s.active, e)
	s.logger.Info("starting equation",
		"name", e.eq.Name, "token", e.token, "duration_s", e.eq.Duration)

	d := time.Duration(e.eq.Duration * float64(time.Second))
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, func() { s.complete(e) })
}

// complete retires e and promotes the queue head, if any. Runs on the
// timer goroutine.
func (s *Scheduler) complete(e *entry) {
	s.mu.Lock()
	for i, a := range s.active {
		if a == e {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	e.phase = PhaseFinished
	s.logger.Info("equation finished", "name", e.eq.Name, "token", e.token)

	// FIFO promotion: earliest submission wins, no priority.
	if len(s.queue) > 0 && len(s.active) < s.capacity {
		next := s.queue[0]
		s.queue[0] = nil // release for GC
		s.queue = s.queue[1:]
		s.admitLocked(next)
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Status returns the current active and queued equation names, in
// admission and arrival order respectively.
func (s *Scheduler) Status() (active, queued []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active = make([]string, len(s.active))
	for i, e := range s.active {
		active[i] = e.eq.Name
	}
	queued = make([]string, len(s.queue))
	for i, e := range s.queue {
		queued[i] = e.eq.Name
	}
	return active, queued
}

// Idle reports whether both the active set and the queue are empty.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active) == 0 && len(s.queue) == 0
}

// Wait blocks until the scheduler is idle or ctx is cancelled. On
// cancellation any still-active lifetimes keep running in the background;
// only the waiting is abandoned.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		if s.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.signal:
		}
	}
}
