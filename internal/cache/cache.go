// Package cache is a process-wide key/value store with per-entry TTLs and a
// process epoch stamp. Entries written by a previous process generation are
// invalid even when their TTL has not elapsed, so a redeploy invalidates the
// whole cache atomically: values shaped by old code are never served by new
// code.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	data    any
	expiry  time.Time
	version int64
}

// Cache is safe for concurrent use. Eviction is lazy: expired or
// stale-epoch entries are dropped on read, there is no background sweep.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	epoch      int64
	defaultTTL time.Duration
	now        func() time.Time
}

// New builds a cache whose epoch is fixed for the life of the process.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		epoch:      time.Now().UnixNano(),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the value stored at key if it is still valid. An entry is valid
// iff its expiry is in the future and it was written under the current epoch;
// anything else is evicted on the spot.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if e.version != c.epoch || !c.now().Before(e.expiry) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have refreshed it.
		if current, still := c.entries[key]; still && (current.version != c.epoch || !c.now().Before(current.expiry)) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

// Set stores data under the current epoch. A non-positive ttl selects the
// configured default.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{
		data:    data,
		expiry:  c.now().Add(ttl),
		version: c.epoch,
	}
	c.mu.Unlock()
}

// Delete removes the entry at key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports how many entries are stored, valid or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cached is the read-through helper: return the cached value when present and
// valid, otherwise invoke produce, store its result, and return it. Concurrent
// callers for the same cold key may each invoke produce once; the brief
// stampede is tolerated because dashboard traffic is low-volume and
// human-driven.
func Cached[T any](c *Cache, key string, ttl time.Duration, produce func() (T, error)) (T, error) {
	if raw, ok := c.Get(key); ok {
		if value, ok := raw.(T); ok {
			return value, nil
		}
		// A type clash means the key is being reused for a different shape;
		// treat it as a miss and overwrite.
		c.Delete(key)
	}

	value, err := produce()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, value, ttl)
	return value, nil
}
