package chat

import (
	"sync"
	"time"
)

type cacheItem struct {
	message string
	expires time.Time
}

// queryCache memoizes resolved lookups: normalized query -> catalog key.
// It caches the resolution only; the entry itself is re-read on every hit
// so usage counters stay fresh. Any successful mutation flushes it.
type queryCache struct {
	mu  sync.RWMutex
	m   map[string]cacheItem
	ttl time.Duration
	max int
}

func newQueryCache(ttl time.Duration, max int) *queryCache {
	if max <= 0 {
		max = 1024
	}
	return &queryCache{m: make(map[string]cacheItem), ttl: ttl, max: max}
}

func (c *queryCache) get(query string, now time.Time) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	it, ok := c.m[query]
	c.mu.RUnlock()
	if !ok || now.After(it.expires) {
		return "", false
	}
	return it.message, true
}

func (c *queryCache) put(query, message string, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.m) >= c.max {
		// drop expired items first; if the cache is still full, drop one
		// arbitrary item rather than grow unbounded
		for k, it := range c.m {
			if now.After(it.expires) {
				delete(c.m, k)
			}
		}
		if len(c.m) >= c.max {
			for k := range c.m {
				delete(c.m, k)
				break
			}
		}
	}
	c.m[query] = cacheItem{message: message, expires: now.Add(c.ttl)}
}

// flush empties the cache; called after any successful teach/remove/edit.
func (c *queryCache) flush() {
	c.mu.Lock()
	c.m = make(map[string]cacheItem)
	c.mu.Unlock()
}
