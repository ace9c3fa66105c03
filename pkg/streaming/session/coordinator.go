package session

import (
	"context"
	"log/slog"
	"sync"

	"mercator-hq/ganymede/pkg/config"
)

// Coordinator creates sessions and indexes the active ones by id. A
// session removes itself from the index exactly once, when its run
// goroutine exits.
//
// Thread safety: safe for concurrent use.
type Coordinator struct {
	cfg      config.StreamingConfig
	resolver Resolver
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewCoordinator creates a session coordinator. resolver may be nil, in
// which case any session error is terminal.
func NewCoordinator(cfg config.StreamingConfig, resolver Resolver, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Start creates, registers, and launches a new session. Options with a
// nil Resolver inherit the coordinator's resolver.
func (c *Coordinator) Start(ctx context.Context, opts Options) *Session {
	if opts.Resolver == nil {
		opts.Resolver = c.resolver
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}

	var s *Session
	s = newSession(ctx, c.cfg, opts, func() {
		c.remove(s.ID())
	})

	c.mu.Lock()
	c.sessions[s.ID()] = s
	c.mu.Unlock()

	s.start()
	return s
}

// Get returns the active session with the given id.
func (c *Coordinator) Get(id string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Active returns the number of registered sessions.
func (c *Coordinator) Active() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// CancelAll requests cancellation of every active session. Used on
// shutdown.
func (c *Coordinator) CancelAll() {
	c.mu.RLock()
	active := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		active = append(active, s)
	}
	c.mu.RUnlock()

	for _, s := range active {
		s.Cancel()
	}
}

func (c *Coordinator) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
}
