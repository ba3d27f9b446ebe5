package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// entry pairs a session with its per-session lock. Every mutation of the
// session happens while holding mu, so a single engagement's log,
// intelligence, and activation flag never tear under concurrent requests.
type entry struct {
	mu   sync.Mutex
	sess *Session
}

// Store is a thread-safe in-memory session table with idle and
// post-closure cleanup.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	idleWindow    time.Duration
	gracePeriod   time.Duration
	sweepInterval time.Duration

	stopCleanup chan struct{}
	cleanupOnce sync.Once

	// onExpire runs for engaging sessions purged by the idle sweep,
	// after removal from the table, outside all locks.
	onExpire func(*Session)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIdleWindow sets how long an inactive open session survives.
func WithIdleWindow(d time.Duration) StoreOption {
	return func(s *Store) {
		s.idleWindow = d
	}
}

// WithGracePeriod sets how long a terminated session remains queryable.
func WithGracePeriod(d time.Duration) StoreOption {
	return func(s *Store) {
		s.gracePeriod = d
	}
}

// WithSweepInterval sets how often the cleanup routine runs.
func WithSweepInterval(d time.Duration) StoreOption {
	return func(s *Store) {
		s.sweepInterval = d
	}
}

// WithExpireHook sets a handler for engaging sessions the idle sweep
// closes. It is how an idle timeout still produces a final callback.
func WithExpireHook(fn func(*Session)) StoreOption {
	return func(s *Store) {
		s.onExpire = fn
	}
}

// NewStore creates a store and starts its background cleanup.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries:       make(map[string]*entry),
		idleWindow:    30 * time.Minute,
		gracePeriod:   5 * time.Minute,
		sweepInterval: 5 * time.Minute,
		stopCleanup:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()
	return s
}

// Acquire returns the session for an id, creating it when absent, with
// its per-session lock held. The caller must call release when done.
func (s *Store) Acquire(id string, meta Metadata) (*Session, func()) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{sess: NewSession(id, meta)}
		s.entries[e.sess.ID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	return e.sess, e.mu.Unlock
}

// Get returns an existing session with its lock held, or ErrNotFound.
func (s *Store) Get(id string) (*Session, func(), error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}

	e.mu.Lock()
	return e.sess, e.mu.Unlock, nil
}

// Snapshot returns the read-only projection of a session.
func (s *Store) Snapshot(id string) (Status, error) {
	sess, release, err := s.Get(id)
	if err != nil {
		return Status{}, err
	}
	defer release()
	return sess.Snapshot(), nil
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
}

// cleanupLoop periodically removes expired sessions.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes terminated sessions past the grace period and open
// sessions idle past the window. Expiry is decided under each entry's
// own lock; the table lock is only held for the map mutations.
func (s *Store) cleanup() {
	now := time.Now()

	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var expired []string
	var abandoned []*Session
	for _, id := range ids {
		sess, release, err := s.Get(id)
		if err != nil {
			continue
		}
		gone := false
		if !sess.Open() {
			gone = now.Sub(sess.ClosedAt) > s.gracePeriod
		} else if now.Sub(sess.LastActivity) > s.idleWindow {
			gone = true
			if sess.AgentActive {
				sess.Terminate(ReasonIdleTimeout)
				abandoned = append(abandoned, sess)
			}
		}
		release()
		if gone {
			expired = append(expired, id)
		}
	}

	if len(expired) > 0 {
		s.mu.Lock()
		for _, id := range expired {
			delete(s.entries, id)
		}
		s.mu.Unlock()
	}

	// Once out of the table no request can reach these sessions, so the
	// hook runs without any lock.
	if s.onExpire != nil {
		for _, sess := range abandoned {
			s.onExpire(sess)
		}
	}
}
