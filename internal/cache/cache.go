// Package cache provides a time-boxed in-memory result cache used to avoid
// recomputing expensive aggregates (holdings, dashboards, FX rate tables).
//
// The cache never self-invalidates except by TTL expiry; callers that mutate
// underlying data (new transaction, refreshed quotes) are responsible for
// calling Clear.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Entry wraps a cached value with its timestamps.
type Entry struct {
	Data      any
	Timestamp time.Time
	ExpiresAt time.Time
}

// Cache is a mutex-guarded TTL key/value store. Expired entries are evicted
// lazily on access; Cleanup sweeps them eagerly to bound memory growth.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the cache's time source. Used by tests to simulate
// TTL expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache with the given default TTL.
func New(defaultTTL time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores a value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores a value under key with an explicit TTL.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{
		Data:      value,
		Timestamp: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Get returns the value stored under key, or false when the key is absent
// or its entry has expired. An expired entry is evicted on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.now().Before(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry with a fresh one.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.Data, true
}

// Cleanup removes every expired entry. Correctness does not depend on this;
// it only bounds the memory footprint between accesses.
func (c *Cache) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries. Invoked by callers after any mutation or
// external data refresh that could change cached aggregate results.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Key builds a deterministic composite cache key from a kind and its
// parameters. Same inputs always yield the same key.
func Key(kind string, params ...string) string {
	if len(params) == 0 {
		return kind
	}
	return kind + ":" + strings.Join(params, ":")
}
