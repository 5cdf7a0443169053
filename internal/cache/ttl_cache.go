// Package cache provides a small in-memory TTL cache for read-mostly payloads
// such as the product listing and retailer search responses.
package cache

import (
	"sync"
	"time"
)

// Cache is the lookup surface shared by the API and the retailer sources.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Purge()
}

type entry[V any] struct {
	expiresAt time.Time
	value     V
}

// TTLCache stores values in memory. Every entry lives for the cache's TTL;
// a non-positive TTL keeps entries until they are deleted or purged.
type TTLCache[K comparable, V any] struct {
	items map[K]entry[V]
	now   func() time.Time
	mu    sync.RWMutex
	ttl   time.Duration
}

// New creates a cache whose entries expire after ttl.
func New[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items: make(map[K]entry[V]),
		now:   time.Now,
		ttl:   ttl,
	}
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Another writer may have refreshed the key meanwhile.
		if current, still := c.items[key]; still && current.expiresAt.Equal(e.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return e.value, true
}

// Set stores a value.
func (c *TTLCache[K, V]) Set(key K, value V) {
	if c == nil {
		return
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Delete removes a cached entry.
func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *TTLCache[K, V]) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.mu.Unlock()
}

// Len counts entries, including expired ones not yet evicted.
func (c *TTLCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Noop always misses and ignores writes.
type Noop[K comparable, V any] struct{}

// Get always returns a miss.
func (Noop[K, V]) Get(K) (V, bool) {
	var zero V
	return zero, false
}

// Set is a no-op.
func (Noop[K, V]) Set(K, V) {}

// Delete is a no-op.
func (Noop[K, V]) Delete(K) {}

// Purge is a no-op.
func (Noop[K, V]) Purge() {}
