// Package session holds the client-side session state as an observable store.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/launchkit-dev/launchkit/internal/authui"
)

// Fetcher performs the session query
type Fetcher func(ctx context.Context) (*authui.Session, error)

// Store is an observable holder of the current session snapshot.
// Each Load starts one query lifecycle: pending, then resolved exactly once.
type Store struct {
	mu     sync.RWMutex
	snap   authui.Snapshot
	gen    uint64
	subs   map[uint64]chan authui.Snapshot
	nextID uint64
	logger zerolog.Logger
}

// Default is the process-wide store
var Default = NewStore(zerolog.Nop())

// NewStore creates an empty, resolved store (no session)
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		subs:   make(map[uint64]chan authui.Snapshot),
		logger: logger,
	}
}

// SetLogger replaces the logger used for failed queries
func (s *Store) SetLogger(logger zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Snapshot returns the current state
func (s *Store) Snapshot() authui.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe returns a channel receiving every state change, starting with the
// current state, and a function that ends the subscription. Slow subscribers
// only see the latest state.
func (s *Store) Subscribe() (<-chan authui.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan authui.Snapshot, 1)
	ch <- s.snap
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// Load marks the store pending and runs fetch on its own goroutine. A newer
// Load supersedes an older one still in flight. A failed query resolves as
// signed out. The returned channel is closed when this query resolves.
func (s *Store) Load(ctx context.Context, fetch Fetcher) <-chan struct{} {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.set(authui.Snapshot{Session: s.snap.Session, Pending: true})
	s.mu.Unlock()

	resolved := make(chan struct{})
	go func() {
		defer close(resolved)

		sess, err := fetch(ctx)
		if err != nil {
			s.mu.RLock()
			logger := s.logger
			s.mu.RUnlock()
			logger.Warn().Err(err).Msg("Session query failed")
			sess = nil
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.set(authui.Snapshot{Session: sess})
	}()

	return resolved
}

// Clear resolves the store to signed out, e.g. after a local sign-out
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.set(authui.Snapshot{})
}

// set must be called with mu held
func (s *Store) set(snap authui.Snapshot) {
	s.snap = snap
	for _, ch := range s.subs {
		// drop the stale value so the subscriber sees the latest one
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
