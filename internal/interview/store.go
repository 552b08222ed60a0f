package interview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionMissing is returned when an operation references an interview id
// that has no session, either because it never existed or because the entry
// was evicted.
var ErrSessionMissing = errors.New("interview: session missing")

// defaultTTL is how long an untouched session survives before eviction.
const defaultTTL = time.Hour

// Store is the process-wide session registry. Every mutation of a session
// runs under that session's own lock via [Store.Do], which serialises the
// orchestrator's end-of-answer sequence per interview id without blocking
// unrelated interviews.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	onEvict  func(*Session)
}

// entry pairs a session with its per-id lock.
type entry struct {
	mu sync.Mutex
	s  *Session
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides the idle eviction window (default one hour).
func WithTTL(ttl time.Duration) StoreOption {
	return func(st *Store) {
		if ttl > 0 {
			st.ttl = ttl
		}
	}
}

// NewStore returns an empty session store.
func NewStore(opts ...StoreOption) *Store {
	st := &Store{
		sessions: make(map[string]*entry),
		ttl:      defaultTTL,
	}
	for _, o := range opts {
		o(st)
	}
	return st
}

// Create registers s. The caller must have set a unique ID.
func (st *Store) Create(s *Session) {
	now := time.Now()
	s.CreatedAt = now
	s.Touched = now
	st.mu.Lock()
	st.sessions[s.ID] = &entry{s: s}
	st.mu.Unlock()
}

// Do runs fn with the session for id under that session's lock. Mutations
// inside fn are the only sanctioned way to change a session. Returns
// [ErrSessionMissing] when no session exists for id.
func (st *Store) Do(id string, fn func(*Session) error) error {
	st.mu.Lock()
	e, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return ErrSessionMissing
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.Touched = time.Now()
	return fn(e.s)
}

// Remove evicts the session for id, if present.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// SetOnEvict registers a callback invoked once for every session removed by
// [Store.Sweep]. The callback runs after the store lock is released, so it
// may call back into the store.
func (st *Store) SetOnEvict(fn func(*Session)) {
	st.mu.Lock()
	st.onEvict = fn
	st.mu.Unlock()
}

// Sweep evicts sessions untouched for longer than the TTL and returns how
// many were removed. Completed sessions stay until they age out so a late
// rejoin still sees the final question as stale display. Each evicted
// session is handed to the OnEvict callback, if one is set.
func (st *Store) Sweep(now time.Time) int {
	st.mu.Lock()
	var evicted []*Session
	for id, e := range st.sessions {
		if now.Sub(e.s.Touched) > st.ttl {
			delete(st.sessions, id)
			evicted = append(evicted, e.s)
		}
	}
	onEvict := st.onEvict
	st.mu.Unlock()

	if onEvict != nil {
		for _, s := range evicted {
			onEvict(s)
		}
	}
	return len(evicted)
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := st.Sweep(now); n > 0 {
					slog.Debug("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}
