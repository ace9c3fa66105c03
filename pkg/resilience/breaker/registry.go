package breaker

import (
	"sync"

	"mercator-hq/ganymede/pkg/config"
)

// Registry holds one breaker per provider identifier, created lazily on
// first use. All breakers share the same configuration.
//
// Thread safety: safe for concurrent use.
type Registry struct {
	cfg config.BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(cfg config.BreakerConfig) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the given provider, creating it in the
// Closed state on first access.
func (r *Registry) Get(provider string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[provider]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[provider]; ok {
		return b
	}
	b = New(r.cfg)
	r.breakers[provider] = b
	return b
}

// SnapshotAll returns the current state of every known breaker, keyed by
// provider identifier.
func (r *Registry) SnapshotAll() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Snapshot, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Snapshot()
	}
	return out
}

// ResetAll returns every breaker to Closed.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
