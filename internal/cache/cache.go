package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Cache is a bounded, TTL'd lookup cache for per-guild configuration.
// Both hits and misses are cached; configuration writers must call Set
// (or Remove) so a change is visible without waiting out the TTL.
type Cache[V any] struct {
	inner *lru.Cache
	ttl   time.Duration
	clock Clock
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func New[V any](size int, ttl time.Duration) (*Cache[V], error) {
	inner, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{inner: inner, ttl: ttl, clock: realClock{}}, nil
}

func (c *Cache[V]) WithClock(clock Clock) {
	c.clock = clock
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.inner.Get(key)
	if !ok {
		return zero, false
	}
	item, ok := raw.(entry[V])
	if !ok {
		c.inner.Remove(key)
		return zero, false
	}
	if c.ttl > 0 && c.clock.Now().Sub(item.storedAt) > c.ttl {
		c.inner.Remove(key)
		return zero, false
	}
	return item.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.inner.Add(key, entry[V]{value: value, storedAt: c.clock.Now()})
}

func (c *Cache[V]) Remove(key string) {
	c.inner.Remove(key)
}
