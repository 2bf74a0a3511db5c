package cache

import (
	"sync"
	"time"
)

// TTLCache is a capacity-bounded key/value store with per-entry absolute
// expiry. Capacity eviction removes the entry with the earliest expiry, not
// the least recently used one: the entry closest to death carries the least
// remaining value.
type TTLCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

type entry struct {
	value     any
	expiresAt time.Time
}

func New(ttl time.Duration, capacity int) *TTLCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &TTLCache{
		entries:  make(map[string]*entry, capacity),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Set inserts value under key with expiry now+TTL. When at capacity the
// single entry with the nearest expiry is evicted first.
func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictNearestLocked()
	}
	c.entries[key] = &entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Get returns the cached value when present and unexpired. Expired entries
// are deleted lazily and reported as a miss.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry, c.capacity)
}

func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache) evictNearestLocked() {
	var nearestKey string
	var nearest time.Time
	first := true
	for key, e := range c.entries {
		if first || e.expiresAt.Before(nearest) {
			nearestKey = key
			nearest = e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, nearestKey)
	}
}
