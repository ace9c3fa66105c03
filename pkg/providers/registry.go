package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the set of configured provider adapters keyed by name.
// It is built once at startup and read concurrently by the routing and
// session layers.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter under its configured name.
// Registering a duplicate name is an error; adapters are identity-bearing
// and silently replacing one would orphan its connections.
func (r *Registry) Register(adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Name()
	if name == "" {
		return fmt.Errorf("cannot register adapter with empty name")
	}
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}

	r.adapters[name] = adapter
	return nil
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", name)
	}
	return adapter, nil
}

// Names returns the sorted names of all registered adapters.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered adapters.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]Adapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		adapters = append(adapters, adapter)
	}
	return adapters
}

// HealthSnapshot returns the health of every registered adapter keyed by name.
func (r *Registry) HealthSnapshot() map[string]AdapterHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]AdapterHealth, len(r.adapters))
	for name, adapter := range r.adapters {
		snapshot[name] = adapter.Health()
	}
	return snapshot
}

// Close closes all registered adapters, collecting the first error.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, adapter := range r.adapters {
		if err := adapter.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing adapter %q: %w", name, err)
		}
	}
	r.adapters = make(map[string]Adapter)
	return firstErr
}
