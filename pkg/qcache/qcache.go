// Package qcache is a small TTL-bounded memo for query results. Invalidation
// is wholesale: any successful write clears every entry, trading hit-rate
// for coherency.
package qcache

import (
	"sync"
	"time"
)

type entry struct {
	value    any
	storedAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// New builds a cache with the given TTL. A non-positive ttl falls back to
// one minute. The clock defaults to time.Now and is injectable for tests.
func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, time.Now)
}

func NewWithClock(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[string]entry)}
}

// Get returns the cached value for key if it is younger than the TTL. A
// stale entry is a miss; it is left in place for the next Put to overwrite.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// InvalidateAll drops every entry. Called synchronously after each
// successful append so no poll ever observes a pre-write snapshot.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}
