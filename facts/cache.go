package facts

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arbiterhq/arbiter"
)

// Cache wraps a resolver with a TTL cache and request coalescing:
// concurrent resolutions of the same key share a single upstream call,
// and a resolved value is served from memory until its TTL expires.
// Errors are not cached; a failed resolution is retried on the next
// request. Safe for concurrent use.
type Cache struct {
	inner arbiter.FactsResolver
	ttl   time.Duration

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    any
	cachedAt time.Time
}

// Cached wraps inner with a Cache. A zero ttl caches forever.
func Cached(inner arbiter.FactsResolver, ttl time.Duration) *Cache {
	return &Cache{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Resolve returns the cached value for key, or resolves it through the
// wrapped resolver, coalescing concurrent calls for the same key.
func (c *Cache) Resolve(ctx context.Context, key string) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && (c.ttl <= 0 || time.Since(e.cachedAt) <= c.ttl) {
		return e.value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		v, err := c.inner.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: v, cachedAt: time.Now()}
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Invalidate drops the cached value for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll drops every cached value.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
