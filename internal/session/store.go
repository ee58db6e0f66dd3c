package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tweetbinder/report-analyzer/internal/logger"
)

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = time.Hour

// Store keeps sessions in memory and evicts idle ones in the background.
// Sessions with an analysis or chat turn in flight are never evicted.
type Store struct {
	// sessions maps uuid.UUID to *Session
	sessions sync.Map

	idleTTL         time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStore creates a store and starts its cleanup goroutine.
// idleTTL <= 0 means DefaultIdleTTL.
func NewStore(idleTTL time.Duration) *Store {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	interval := idleTTL / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}

	s := &Store{
		idleTTL:         idleTTL,
		cleanupInterval: interval,
		now:             time.Now,
		stopCleanup:     make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Create registers a fresh session.
func (s *Store) Create() *Session {
	sess := newWithClock(s.now)
	s.sessions.Store(sess.ID, sess)
	return sess
}

// Get returns the session with id, or ErrNotFound.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	sess.Touch()
	return sess, nil
}

// Delete removes a session. It reports whether the session existed.
func (s *Store) Delete(id uuid.UUID) bool {
	_, loaded := s.sessions.LoadAndDelete(id)
	return loaded
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	var count int
	s.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// cleanup periodically removes idle sessions
func (s *Store) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.evictIdle(); n > 0 {
				logger.Debug("evicted idle sessions", "count", n, "remaining", s.Len())
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// evictIdle removes sessions untouched for longer than idleTTL and returns how many it removed.
func (s *Store) evictIdle() int {
	cutoff := s.now().UTC().Add(-s.idleTTL)
	var evicted int

	s.sessions.Range(func(key, value any) bool {
		sess := value.(*Session)
		if !sess.Busy() && sess.idleSince().Before(cutoff) {
			s.sessions.Delete(key)
			evicted++
		}
		return true
	})
	return evicted
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}
