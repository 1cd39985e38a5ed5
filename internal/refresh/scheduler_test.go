package refresh

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/session-gateway/internal/auth/types"
	"github.com/authbridge/session-gateway/internal/config"
	"github.com/authbridge/session-gateway/internal/session"
)

// fakeFetcher stands in for the authentication client.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	block  chan struct{}
	onCall func(n int)
}

func (f *fakeFetcher) GetSession(ctx context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	onCall := f.onCall
	block := f.block
	f.mu.Unlock()

	if onCall != nil {
		onCall(n)
	}
	if block != nil {
		<-block
	}
	return json.RawMessage(`{"user":"u"}`), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func authedStore() *session.Store {
	store := session.NewStore(nil)
	store.SetSession(&types.TokenRecord{Raw: "tok"}, json.RawMessage(`{"user":"u"}`))
	return store
}

func policy(intervalMs int64, onFocus bool) config.SessionConfig {
	return config.SessionConfig{
		RefreshPeriodically:  config.EveryMillis(intervalMs),
		RefreshOnWindowFocus: onFocus,
	}
}

func TestOverlappingTriggersCollapse(t *testing.T) {
	fetch := &fakeFetcher{block: make(chan struct{})}
	s := New(fetch, authedStore(), policy(1000, true))

	// Timer fires, then a focus event lands while the fetch is still in
	// flight: the second trigger must be a no-op.
	s.maybeRefresh(context.Background(), "timer")
	s.maybeRefresh(context.Background(), "focus")

	require.Eventually(t, func() bool { return s.StateNow() == StateRefreshing },
		time.Second, 5*time.Millisecond)

	close(fetch.block)
	require.Eventually(t, func() bool { return s.StateNow() != StateRefreshing },
		time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, fetch.callCount(), "exactly one session fetch for overlapping triggers")
}

func TestPeriodicRefreshWhileSessionExists(t *testing.T) {
	fetch := &fakeFetcher{}
	s := New(fetch, authedStore(), policy(10, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool { return fetch.callCount() >= 3 },
		2*time.Second, 5*time.Millisecond, "timer should keep refreshing an existing session")
	assert.Equal(t, StateScheduled, s.StateNow())
}

func TestRefreshStopsWhenSessionGone(t *testing.T) {
	store := authedStore()
	fetch := &fakeFetcher{}
	fetch.onCall = func(n int) {
		if n == 2 {
			// Backend rejected the session: the client would clear it.
			store.Clear()
		}
	}
	s := New(fetch, store, policy(10, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool { return fetch.callCount() >= 2 },
		2*time.Second, 5*time.Millisecond, "fetch that clears the store must happen first")
	require.Eventually(t, func() bool { return s.StateNow() == StateIdle },
		2*time.Second, 5*time.Millisecond, "no refresh of a logged-out state")

	settled := fetch.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, fetch.callCount(), "idle scheduler must not keep polling")
}

func TestKickArmsTimerOnSessionEstablishment(t *testing.T) {
	store := session.NewStore(nil)
	fetch := &fakeFetcher{}
	s := New(fetch, store, policy(10, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	// No session yet: the startup kick must not arm anything.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fetch.callCount())
	assert.Equal(t, StateIdle, s.StateNow())

	store.SetSession(&types.TokenRecord{Raw: "tok"}, json.RawMessage(`{"user":"u"}`))
	s.Kick()

	require.Eventually(t, func() bool { return fetch.callCount() >= 1 },
		2*time.Second, 5*time.Millisecond)
}

func TestFocusTriggerIndependentOfTimer(t *testing.T) {
	fetch := &fakeFetcher{}
	s := New(fetch, authedStore(), policy(0, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	// No interval configured: only focus events drive refresh.
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, fetch.callCount())

	s.Focus()
	require.Eventually(t, func() bool { return fetch.callCount() == 1 },
		2*time.Second, 5*time.Millisecond)
}

func TestFocusIgnoredWhenDisabled(t *testing.T) {
	fetch := &fakeFetcher{}
	s := New(fetch, authedStore(), policy(0, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	s.Focus()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fetch.callCount())
}

func TestStopCancelsPendingTimers(t *testing.T) {
	fetch := &fakeFetcher{}
	s := New(fetch, authedStore(), policy(10, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return fetch.callCount() >= 1 },
		2*time.Second, 5*time.Millisecond)

	s.Stop()
	settled := fetch.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, fetch.callCount(), "no refreshes after Stop")
}
