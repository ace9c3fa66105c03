package migration

import (
	"sync"
	"time"
)

// decisionCache memoizes per-session rollout decisions with TTL expiry
// and LRU eviction. Decisions are deterministic in the session
// identifier, so the cache only saves the hash; correctness does not
// depend on hit rate.
type decisionCache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.RWMutex
	entries map[string]*decisionEntry

	stopCh    chan struct{}
	closeOnce sync.Once
}

type decisionEntry struct {
	inRollout      bool
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// newDecisionCache creates the cache. ttl of zero disables expiry;
// maxEntries of zero means unbounded.
func newDecisionCache(ttl time.Duration, maxEntries int) *decisionCache {
	c := &decisionCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*decisionEntry),
		stopCh:     make(chan struct{}),
	}
	if ttl > 0 {
		interval := ttl / 2
		if interval < 10*time.Second {
			interval = 10 * time.Second
		}
		go c.cleanupLoop(interval)
	}
	return c
}

func (c *decisionCache) get(key string) (bool, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	if !ok || (c.ttl > 0 && time.Now().After(entry.expiresAt)) {
		c.mu.RUnlock()
		return false, false
	}
	decision := entry.inRollout
	c.mu.RUnlock()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastAccessedAt = time.Now()
	}
	c.mu.Unlock()

	return decision, true
}

func (c *decisionCache) set(key string, inRollout bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}

	now := time.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}
	c.entries[key] = &decisionEntry{
		inRollout:      inRollout,
		expiresAt:      expiresAt,
		lastAccessedAt: now,
	}
}

// clear drops all cached decisions. Called whenever a flag mutation
// could change routing outcomes.
func (c *decisionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*decisionEntry)
}

func (c *decisionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *decisionCache) close() {
	c.closeOnce.Do(func() {
		close(c.stopCh)
	})
}

// evictLRU removes the least recently accessed entry. Caller holds the
// write lock.
func (c *decisionCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *decisionCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *decisionCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
