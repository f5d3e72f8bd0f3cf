// Package cache provides a small bounded in-process TTL cache. It is the
// shared backing for the follow graph's cached counts, membership flags and
// list pages. Expiry is lazy (checked on access), eviction is
// oldest-inserted-first, and there is no background sweeper, so memory is
// bounded by the configured capacity even when nothing expires.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	written time.Time
}

// TTL is a bounded key-value cache with per-entry expiry. Safe for
// concurrent use.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	cap     int
	entries map[K]entry[V]
	order   []K // insertion order, oldest first; may hold stale keys
}

// NewTTL creates a cache holding at most capacity entries, each valid for
// ttl after its last write. A capacity <= 0 panics.
func NewTTL[K comparable, V any](ttl time.Duration, capacity int) *TTL[K, V] {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	return &TTL[K, V]{
		ttl:     ttl,
		cap:     capacity,
		entries: make(map[K]entry[V], capacity),
	}
}

// Get returns the value for key if present and not expired. An expired
// entry is removed on the way out.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Since(e.written) > c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value, refreshing the write stamp. When the cache is full
// the oldest-inserted live entry is evicted first.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.cap {
			c.evictOldestLocked()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry[V]{value: value, written: time.Now()}
}

// Update applies fn to the current value of key, if present and live, and
// stores the result without refreshing the expiry stamp, so adjusting a
// value does not extend its lifetime. Returns false when the key is absent
// or expired.
func (c *TTL[K, V]) Update(key K, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Since(e.written) > c.ttl {
		if ok {
			delete(c.entries, key)
		}
		return false
	}
	e.value = fn(e.value)
	c.entries[key] = e
	return true
}

// Delete removes a key. Deleting an absent key is a no-op.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeleteWhere removes every entry whose key matches the predicate.
func (c *TTL[K, V]) DeleteWhere(match func(K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of stored entries, expired ones included until
// they are touched.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestLocked drops the oldest live entry, skipping queue slots whose
// key was deleted or re-evicted earlier.
func (c *TTL[K, V]) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}
