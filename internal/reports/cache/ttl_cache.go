package cache

import (
	"context"
	"sync"
	"time"
)

// TTLCache keeps values for a fixed time. A nil *TTLCache or one with a
// non-positive TTL caches nothing and always calls the loader.
type TTLCache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.RWMutex
	data map[string]entry[V]

	hits   int64
	misses int64
}

type entry[V any] struct {
	value      V
	expiration time.Time
}

// Stats reports cache effectiveness
type Stats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// New creates a cache holding values for ttl
func New[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]entry[V]),
	}
}

func (c *TTLCache[V]) enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns the live value stored under key
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if !c.enabled() {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok || c.now().After(e.expiration) {
		c.misses++
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key, dropping expired entries on the way
func (c *TTLCache[V]) Set(key string, value V) {
	if !c.enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.data {
		if now.After(e.expiration) {
			delete(c.data, k)
		}
	}
	c.data[key] = entry[V]{value: value, expiration: now.Add(c.ttl)}
}

// GetOrLoad returns the cached value or loads, stores and returns a fresh
// one. Load errors are returned and not cached.
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.Set(key, value)
	return value, nil
}

// Clear removes every entry
func (c *TTLCache[V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry[V])
}

// Stats returns the current size and hit counts
func (c *TTLCache[V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Size: len(c.data), Hits: c.hits, Misses: c.misses}
}
