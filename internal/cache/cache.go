// Package cache provides a small generic TTL cache used for live prices and
// health reports.
package cache

import (
	"sync"
	"time"

	"github.com/bobmcallan/playground/internal/common"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a mutex-guarded map whose entries expire after a fixed TTL.
// Expired entries are invisible to Get and removed by PurgeExpired.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[K]entry[V]
}

// New creates a cache with the given TTL. A non-positive TTL disables caching.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[K]entry[V]),
	}
}

// WithClock replaces the time source, for tests.
func (c *Cache[K, V]) WithClock(now func() time.Time) *Cache[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns the value for key if present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time.
func (c *Cache[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// PurgeExpired removes stale entries and returns how many were dropped.
func (c *Cache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !c.fresh(e) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache[K, V]) fresh(e entry[V]) bool {
	return common.IsFreshAt(e.storedAt, c.now(), c.ttl)
}
