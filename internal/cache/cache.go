package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxEntries bounds a cache created with a non-positive limit.
const DefaultMaxEntries = 1024

// Entry is a cached value and the time it was stored.
type Entry[V any] struct {
	Value     V
	Timestamp time.Time
}

// Cache is a concurrency-safe memo keyed by content hash. Once full it stops
// accepting new keys; existing keys can still be overwritten.
type Cache[V any] struct {
	entries sync.Map
	size    atomic.Int64
	max     int64
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache holding at most maxEntries values.
func New[V any](maxEntries int) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache[V]{max: int64(maxEntries)}
}

// Key hashes parts into a cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns the value stored under key.
func (c *Cache[V]) Get(key string) (V, bool) {
	if val, ok := c.entries.Load(key); ok {
		c.hits.Add(1)
		return val.(Entry[V]).Value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Put stores value under key. It reports false when the cache is full.
func (c *Cache[V]) Put(key string, value V, now time.Time) bool {
	entry := Entry[V]{Value: value, Timestamp: now}
	if _, loaded := c.entries.Load(key); loaded {
		c.entries.Store(key, entry)
		return true
	}
	if c.size.Add(1) > c.max {
		c.size.Add(-1)
		return false
	}
	if _, loaded := c.entries.LoadOrStore(key, entry); loaded {
		c.size.Add(-1)
		c.entries.Store(key, entry)
	}
	return true
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	return int(c.size.Load())
}

// Stats returns the hit and miss counters.
func (c *Cache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.entries.Range(func(k, _ any) bool {
		if _, ok := c.entries.LoadAndDelete(k); ok {
			c.size.Add(-1)
		}
		return true
	})
}
