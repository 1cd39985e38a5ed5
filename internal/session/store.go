// Package session owns the gateway's authentication state: the single
// active token record and the opaque session payload.
//
// DESIGN: The store is the only shared mutable state in the system. It is
// written exclusively by the authentication client; the route guard and
// the refresh scheduler see it through the read-only Reader interface.
// Every mutation bumps a generation counter so work captured against an
// older session (an in-flight refresh, for example) can be detected and
// discarded instead of resurrecting cleared state.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/authbridge/session-gateway/internal/auth/types"
)

// Snapshot is a consistent view of the session state. Record and Payload
// always belong to the same generation; readers never observe a token
// from one sign-in paired with a payload from another.
type Snapshot struct {
	Record     *types.TokenRecord
	Payload    json.RawMessage
	Generation uint64
}

// Authenticated reports whether a session payload is present. Presence is
// the sole authentication signal; the payload itself is opaque.
func (s Snapshot) Authenticated() bool {
	return len(s.Payload) > 0
}

// Reader is the read-only view handed to the route guard and the refresh
// scheduler. Only the authentication client holds the full *Store.
type Reader interface {
	Snapshot() Snapshot
}

// Store holds the token record and session payload behind a mutex so a
// snapshot is always internally consistent.
type Store struct {
	mu      sync.Mutex
	record  *types.TokenRecord
	payload json.RawMessage
	gen     uint64

	slot *Slot
	now  func() time.Time
}

// NewStore creates a store, optionally backed by a persisted slot. A nil
// slot keeps the session in memory only. A corrupt or empty slot starts
// the store unauthenticated rather than failing.
func NewStore(slot *Slot) *Store {
	s := &Store{slot: slot, now: time.Now}

	if slot != nil {
		doc, err := slot.Load()
		if err != nil {
			log.Warn().Err(err).Msg("session: persisted slot unreadable, starting unauthenticated")
		} else if doc != "" {
			rec, payload := decodeState(doc)
			s.record = rec
			s.payload = payload
		}
	}

	return s
}

// Snapshot returns the current state. An expired token record forces a
// local sign-out before anything is returned, so no consumer ever
// observes a payload backed by an expired credential.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record != nil && s.record.Expired(s.now()) {
		log.Debug().Time("expired_at", s.record.ExpiresAt).Msg("session: token expired, clearing")
		s.clearLocked()
	}

	snap := Snapshot{Generation: s.gen}
	if s.record != nil {
		rec := *s.record
		snap.Record = &rec
	}
	if s.payload != nil {
		snap.Payload = append(json.RawMessage(nil), s.payload...)
	}
	return snap
}

// Generation returns the current generation counter.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// SetSession replaces the token record and payload wholesale. This is the
// sign-in path; it starts a new generation.
func (s *Store) SetSession(rec *types.TokenRecord, payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = rec
	s.payload = append(json.RawMessage(nil), payload...)
	s.gen++
	s.persistLocked()
}

// ApplyPayload replaces the session payload only if gen still matches the
// current generation. Returns false when the result was stale and
// discarded. This is the refresh path; it does not start a new
// generation, so consecutive refreshes of the same session all apply.
func (s *Store) ApplyPayload(gen uint64, payload json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		log.Debug().
			Uint64("captured", gen).
			Uint64("current", s.gen).
			Msg("session: stale refresh result discarded")
		return false
	}

	s.payload = append(json.RawMessage(nil), payload...)
	s.persistLocked()
	return true
}

// ClearIfCurrent clears the store only if gen still matches the current
// generation. Returns false when the clear was stale and discarded. This
// is the refresh path's sign-out: a backend rejection observed by a fetch
// that started before a newer sign-in must not wipe the newer session.
func (s *Store) ClearIfCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		log.Debug().
			Uint64("captured", gen).
			Uint64("current", s.gen).
			Msg("session: stale clear discarded")
		return false
	}

	s.clearLocked()
	return true
}

// Clear removes the token record and payload and starts a new generation.
// Clearing an already empty store is a harmless no-op apart from the
// generation bump.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.record = nil
	s.payload = nil
	s.gen++
	s.persistLocked()
}

// persistLocked writes through to the slot. Persistence failures are
// logged, not propagated: the in-memory state is authoritative.
func (s *Store) persistLocked() {
	if s.slot == nil {
		return
	}

	if s.record == nil && s.payload == nil {
		if err := s.slot.Clear(); err != nil {
			log.Warn().Err(err).Msg("session: failed to clear persisted slot")
		}
		return
	}

	if err := s.slot.Save(encodeState(s.record, s.payload)); err != nil {
		log.Warn().Err(err).Msg("session: failed to persist slot")
	}
}
