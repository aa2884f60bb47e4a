// Package ttlcache holds a single lazily loaded value that expires after a TTL.
//
// Readers never take a lock: the current entry is swapped atomically, and
// concurrent misses are collapsed into one loader call.
package ttlcache

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a single loader call
const DefaultLoadTimeout = 10 * time.Second

// Loader produces a fresh value for the cache
type Loader[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value      T
	expiresAt  time.Time
	generation uint64
}

// Cache is a read-mostly TTL cache for one value
type Cache[T any] struct {
	ttl         time.Duration
	loadTimeout time.Duration
	load        Loader[T]
	now         func() time.Time
	current     atomic.Pointer[entry[T]]
	generation  atomic.Uint64
	group       singleflight.Group
}

// Option configures a Cache
type Option[T any] func(*Cache[T])

// WithClock overrides the time source
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLoadTimeout overrides DefaultLoadTimeout
func WithLoadTimeout[T any](d time.Duration) Option[T] {
	return func(c *Cache[T]) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// New creates a cache that reloads through load once ttl has elapsed
func New[T any](ttl time.Duration, load Loader[T], opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		ttl:         ttl,
		loadTimeout: DefaultLoadTimeout,
		load:        load,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value, loading it when missing or expired.
// If a reload fails while an expired value is still held, the stale value is
// returned; an invalidated cache has nothing to fall back to.
//
// The shared load is detached from the caller's cancellation so one caller
// giving up does not fail the others waiting on it. A cancelled caller
// returns early with its context error.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	if e := c.current.Load(); e != nil && c.now().Before(e.expiresAt) {
		return e.value, nil
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("load", func() (any, error) {
		if e := c.current.Load(); e != nil && c.now().Before(e.expiresAt) {
			return e.value, nil
		}

		ctx, cancel := context.WithTimeout(loadCtx, c.loadTimeout)
		defer cancel()

		gen := c.generation.Load()
		value, err := c.load(ctx)
		if err != nil {
			return nil, err
		}

		// An invalidation that raced with this load wins.
		if c.generation.Load() == gen {
			c.current.Store(&entry[T]{
				value:      value,
				expiresAt:  c.now().Add(c.ttl),
				generation: gen,
			})
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if e := c.current.Load(); e != nil {
				return e.value, nil
			}
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops the cached value so the next Get reloads it
func (c *Cache[T]) Invalidate() {
	c.generation.Add(1)
	c.current.Store(nil)
	c.group.Forget("load")
}

// Peek returns the cached value without loading, and whether it is fresh
func (c *Cache[T]) Peek() (T, bool) {
	e := c.current.Load()
	if e == nil {
		var zero T
		return zero, false
	}
	return e.value, c.now().Before(e.expiresAt)
}
