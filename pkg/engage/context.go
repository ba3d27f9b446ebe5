package engage

import (
	"sync"
	"time"
)

// Context is the per-session conversational state owned by the engagement
// engine. It is keyed by session identifier and purged independently of the
// session store when idle too long.
//
// The engine and its caller mutate the conversational fields under the
// caller's per-session serialization. LastActivity is also read by the
// store's sweeper, so it must be updated through ContextStore.Touch.
type Context struct {
	SessionID    string
	MessageCount int
	Tactics      []string
	LastStrategy string
	Trust        float64
	LastActivity time.Time
}

// AddTactic records a tactic label once.
func (c *Context) AddTactic(name string) {
	for _, t := range c.Tactics {
		if t == name {
			return
		}
	}
	c.Tactics = append(c.Tactics, name)
}

// ContextStore is a thread-safe in-memory store of conversation contexts
// with TTL-based cleanup.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]*Context

	idleWindow    time.Duration
	sweepInterval time.Duration

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// ContextStoreOption configures a ContextStore.
type ContextStoreOption func(*ContextStore)

// WithIdleWindow sets how long an inactive context survives.
func WithIdleWindow(d time.Duration) ContextStoreOption {
	return func(s *ContextStore) {
		s.idleWindow = d
	}
}

// WithSweepInterval sets how often the cleanup routine runs.
func WithSweepInterval(d time.Duration) ContextStoreOption {
	return func(s *ContextStore) {
		s.sweepInterval = d
	}
}

// NewContextStore creates a store and starts its background cleanup.
func NewContextStore(opts ...ContextStoreOption) *ContextStore {
	s := &ContextStore{
		contexts:      make(map[string]*Context),
		idleWindow:    30 * time.Minute,
		sweepInterval: 5 * time.Minute,
		stopCleanup:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()
	return s
}

// GetOrCreate returns the context for a session, creating it with a
// neutral trust estimate on first use.
func (s *ContextStore) GetOrCreate(sessionID string) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx, ok := s.contexts[sessionID]; ok {
		return ctx
	}
	ctx := &Context{
		SessionID:    sessionID,
		Trust:        0.5,
		LastActivity: time.Now(),
	}
	s.contexts[sessionID] = ctx
	return ctx
}

// Get returns the context for a session, or nil when absent.
func (s *ContextStore) Get(sessionID string) *Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contexts[sessionID]
}

// Touch marks a context as active now.
func (s *ContextStore) Touch(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx, ok := s.contexts[sessionID]; ok {
		ctx.LastActivity = time.Now()
	}
}

// Delete removes a context.
func (s *ContextStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
}

// Len returns the number of live contexts.
func (s *ContextStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// Close stops the cleanup goroutine.
func (s *ContextStore) Close() {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
}

// cleanupLoop periodically removes idle contexts.
func (s *ContextStore) cleanupLoop() {
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

// cleanup removes contexts whose idle gap exceeds the window.
func (s *ContextStore) cleanup() {
	cutoff := time.Now().Add(-s.idleWindow)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ctx := range s.contexts {
		if ctx.LastActivity.Before(cutoff) {
			delete(s.contexts, id)
		}
	}
}
