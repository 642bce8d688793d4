package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// QueryCache is an in-process memoization layer for store-facing reads:
// bounded capacity, least-recently-used eviction, per-cache TTL. There is no
// cross-process coherence; any component that mutates underlying data must
// invalidate the affected keys or prefixes before returning.
type QueryCache struct {
	lru *expirable.LRU[string, any]

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// Stats reports cache size and hit/miss counters for observability.
type Stats struct {
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New creates a QueryCache holding at most capacity entries, each expiring
// ttl after being written.
func New(capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &QueryCache{
		lru: expirable.NewLRU[string, any](capacity, nil, ttl),
	}
}

// Get returns the cached value for key and whether it was present.
func (c *QueryCache) Get(key string) (any, bool) {
	val, ok := c.lru.Get(key)
	c.mu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
	return val, ok
}

// Set stores value under key, evicting the least-recently-used entry on
// overflow.
func (c *QueryCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Invalidate removes a single key. Returns whether it was present.
func (c *QueryCache) Invalidate(key string) bool {
	return c.lru.Remove(key)
}

// InvalidatePrefix removes every key starting with prefix and returns how
// many were dropped. Used after writes to flush all cached queries scoped to
// one graph or person.
func (c *QueryCache) InvalidatePrefix(prefix string) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			if c.lru.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	c.lru.Purge()
}

// Stats returns a snapshot of the cache counters.
func (c *QueryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Size:   c.lru.Len(),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Key joins parts into a cache key. Parts are ordered broad to narrow
// ("adjacency", rootID, depth) so prefix invalidation can target a scope.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
