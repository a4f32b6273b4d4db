// Package flightcache implements a time-windowed, single-flight memoization
// cache. Repeated requests for one key inside the TTL window reuse a single
// completed computation, and concurrent misses for one key share a single
// in-flight loader call.
package flightcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/procurex/map-insight/internal/core/observability"
)

const (
	DefaultTTL     = 60 * time.Second
	DefaultMaxKeys = 1024
)

// Loader produces the value for a key on a cache miss.
type Loader[T any] func(ctx context.Context) (T, error)

// Layer is an optional shared second-level byte store consulted before the
// loader and written after it. Treated as a latency optimization only; a
// Layer failure degrades to a plain loader call.
type Layer interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Option[T any] func(*Cache[T])

// WithClock injects a clock, used by tests to control TTL expiry.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLayer[T any](l Layer) Option[T] {
	return func(c *Cache[T]) { c.l2 = l }
}

type Cache[T any] struct {
	ttl time.Duration
	now func() time.Time
	l2  Layer

	mu      sync.Mutex
	entries *lru.Cache[string, *entry[T]]
}

type entry[T any] struct {
	ready      chan struct{}
	val        T
	err        error
	capturedAt time.Time
}

func New[T any](ttl time.Duration, maxKeys int, opts ...Option[T]) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	c := &Cache[T]{ttl: ttl, now: time.Now}
	c.entries, _ = lru.New[string, *entry[T]](maxKeys)
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrLoad returns the cached value for key when a fresh entry exists,
// otherwise invokes loader exactly once and caches the result. A second
// caller arriving while a load is in flight waits on that load rather than
// triggering its own; it observes its own context cancellation independently.
// Failed loads are not cached.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key string, loader Loader[T]) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries.Get(key); ok {
		select {
		case <-e.ready:
			if e.err == nil && c.now().Sub(e.capturedAt) < c.ttl {
				c.mu.Unlock()
				observability.IncCacheResult("hit")
				return e.val, nil
			}
			// expired or failed entry, rebuild below
		default:
			c.mu.Unlock()
			observability.IncCacheResult("inflight_join")
			return e.wait(ctx)
		}
	}
	e := &entry[T]{ready: make(chan struct{})}
	c.entries.Add(key, e)
	c.mu.Unlock()

	val, err := c.load(ctx, key, loader)
	e.val, e.err, e.capturedAt = val, err, c.now()
	close(e.ready)

	if err != nil {
		c.mu.Lock()
		if cur, ok := c.entries.Peek(key); ok && cur == e {
			c.entries.Remove(key)
		}
		c.mu.Unlock()
		var zero T
		return zero, err
	}
	return val, nil
}

// Update applies fn to the resolved value cached under key, replacing the
// entry and refreshing its capture time. Returns false when there is no
// fresh resolved entry to update.
func (c *Cache[T]) Update(key string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok {
		return false
	}
	select {
	case <-e.ready:
	default:
		return false
	}
	if e.err != nil || c.now().Sub(e.capturedAt) >= c.ttl {
		return false
	}

	ready := make(chan struct{})
	close(ready)
	c.entries.Add(key, &entry[T]{ready: ready, val: fn(e.val), capturedAt: c.now()})
	return true
}

// Len reports the number of cached keys, including in-flight ones.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (e *entry[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-e.ready:
		if e.err != nil {
			var zero T
			return zero, e.err
		}
		return e.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) load(ctx context.Context, key string, loader Loader[T]) (T, error) {
	if c.l2 != nil {
		b, ok, err := c.l2.Get(ctx, key)
		if err == nil && ok {
			var v T
			if uerr := json.Unmarshal(b, &v); uerr == nil {
				observability.IncCacheResult("l2_hit")
				return v, nil
			}
		}
	}
	observability.IncCacheResult("miss")

	v, err := loader(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if c.l2 != nil {
		if b, merr := json.Marshal(v); merr == nil {
			_ = c.l2.Set(ctx, key, b, c.ttl)
		}
	}
	return v, nil
}
