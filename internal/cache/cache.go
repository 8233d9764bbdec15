// Package cache provides a small in-process TTL cache for upstream API
// responses. Instances are constructor-injected so tests never share state.
package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Cache is a flat key/value store with per-entry expiry. Eviction is lazy:
// expired entries are dropped on the next read, plus an opportunistic sweep
// when the map grows large.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	nowFn   func() time.Time
}

type entry struct {
	value     any
	expiresAt time.Time
}

const sweepThreshold = 4096

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		nowFn:   time.Now,
	}
}

// Get returns the cached value for key, or false if absent or expired.
// An expired hit is never returned.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.nowFn().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= sweepThreshold {
		now := c.nowFn()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = entry{value: value, expiresAt: c.nowFn().Add(ttl)}
}

// Len reports the number of entries, including not-yet-evicted expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key builds a canonical cache key from a prefix and a parameter struct.
// Struct fields marshal in declaration order and map keys sort, so equal
// parameters always produce the same key.
func Key(prefix string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}
	return prefix + ":" + string(data)
}
