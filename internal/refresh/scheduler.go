// Package refresh keeps an established session fresh by periodically
// revalidating it through the authentication client.
//
// DESIGN: The scheduler is a small state machine (Idle, Scheduled,
// Refreshing) driven by three event sources: the interval timer, window
// focus reports from the embedding frontend, and session establishment
// kicks after sign-in. Overlapping triggers collapse into a single
// in-flight session fetch; staleness of completed fetches is handled by
// the store's generation counter, not by request cancellation.
package refresh

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/authbridge/session-gateway/internal/config"
	"github.com/authbridge/session-gateway/internal/session"
)

// State is the scheduler's lifecycle state.
type State int

const (
	// StateIdle means no refresh is scheduled: either refresh is
	// disabled or there is no session to keep fresh.
	StateIdle State = iota

	// StateScheduled means the interval timer is armed.
	StateScheduled

	// StateRefreshing means a session fetch is in flight.
	StateRefreshing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Fetcher revalidates the session. Implemented by the authentication
// client; the scheduler never writes session state itself.
type Fetcher interface {
	GetSession(ctx context.Context) (json.RawMessage, error)
}

// Scheduler drives periodic and focus-triggered session refresh.
type Scheduler struct {
	fetch    Fetcher
	store    session.Reader
	interval time.Duration
	onFocus  bool

	mu       sync.Mutex
	state    State
	inflight bool
	ticker   *time.Ticker

	focusCh  chan struct{}
	kickCh   chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a scheduler from the session refresh policy. The scheduler
// does nothing until Start is called.
func New(fetch Fetcher, store session.Reader, policy config.SessionConfig) *Scheduler {
	return &Scheduler{
		fetch:    fetch,
		store:    store,
		interval: policy.RefreshPeriodically.Interval(),
		onFocus:  policy.RefreshOnWindowFocus,
		focusCh:  make(chan struct{}, 1),
		kickCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduler loop. If a session already exists (for
// example restored from the persisted slot) the timer is armed
// immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval > 0 {
		s.ticker = time.NewTicker(s.interval)
		s.ticker.Stop()
	}

	go s.run(ctx)
	s.Kick()
}

// Kick reports session establishment: sign-in or slot restore. It arms
// the interval timer when the policy enables it. Safe to call at any
// time; a kick with no session or no interval configured is a no-op.
func (s *Scheduler) Kick() {
	select {
	case s.kickCh <- struct{}{}:
	default:
	}
}

// Focus reports a window-focus event from the embedding frontend. It
// triggers an immediate refresh without disturbing the timer's phase.
func (s *Scheduler) Focus() {
	if !s.onFocus {
		return
	}
	select {
	case s.focusCh <- struct{}{}:
	default:
	}
}

// Stop cancels pending timers and shuts the loop down. An in-flight
// refresh is allowed to complete; its result is discarded by the store's
// generation guard if the session was cleared in the meantime.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.ticker != nil {
			s.ticker.Stop()
		}
	})
	<-s.done
}

// StateNow returns the current state.
func (s *Scheduler) StateNow() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight {
		return StateRefreshing
	}
	return s.state
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	var tickC <-chan time.Time
	if s.ticker != nil {
		tickC = s.ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.kickCh:
			s.schedule()
		case <-tickC:
			s.maybeRefresh(ctx, "timer")
		case <-s.focusCh:
			s.maybeRefresh(ctx, "focus")
		}
	}
}

// schedule arms the timer for an established session: Idle -> Scheduled.
func (s *Scheduler) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 || s.state != StateIdle {
		return
	}
	if !s.store.Snapshot().Authenticated() {
		return
	}

	s.ticker.Reset(s.interval)
	s.state = StateScheduled
	log.Debug().Dur("interval", s.interval).Msg("refresh: scheduled")
}

// maybeRefresh starts a session fetch unless one is already in flight.
// A second trigger while Refreshing is a no-op: this is what collapses a
// timer tick and a focus event landing in the same window.
func (s *Scheduler) maybeRefresh(ctx context.Context, source string) {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		log.Debug().Str("source", source).Msg("refresh: trigger collapsed into in-flight fetch")
		return
	}
	if !s.store.Snapshot().Authenticated() {
		s.toIdleLocked()
		s.mu.Unlock()
		return
	}
	s.inflight = true
	s.mu.Unlock()

	go func() {
		gen := s.store.Snapshot().Generation
		_, err := s.fetch.GetSession(ctx)
		if err != nil {
			// Transient failure: keep the schedule, retry on next tick.
			log.Debug().Err(err).Str("source", source).Msg("refresh: session fetch failed")
		}
		s.complete(gen)
	}()
}

// complete transitions out of Refreshing: back to Scheduled while a
// session still exists, otherwise to Idle with the timer disarmed.
func (s *Scheduler) complete(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight = false

	snap := s.store.Snapshot()
	if snap.Authenticated() && s.interval > 0 {
		s.state = StateScheduled
		return
	}
	if gen != snap.Generation {
		log.Debug().Msg("refresh: session changed during fetch")
	}
	s.toIdleLocked()
}

func (s *Scheduler) toIdleLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.state != StateIdle {
		log.Debug().Msg("refresh: idle")
	}
	s.state = StateIdle
}
