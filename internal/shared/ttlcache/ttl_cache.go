// Package ttlcache provides an in-process keyed cache with per-entry TTL and
// single-flight loading.
package ttlcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a cached value together with the time it was stored.
type Entry[V any] struct {
	Value     V
	UpdatedAt time.Time
}

// LoadFunc computes the value for a key on a cache miss.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// TTLCache is an in-process cache with a fixed time-to-live per entry.
// Concurrent loads for the same key are collapsed into a single call, and a
// failed load never evicts or overwrites an existing entry.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// NewTTLCache creates a TTLCache. If now is nil, time.Now is used.
func NewTTLCache[V any](ttl time.Duration, now func() time.Time) *TTLCache[V] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		now:     now,
	}
}

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key if it exists and has not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Peek returns the entry for key regardless of its age.
func (c *TTLCache[V]) Peek(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return e, ok
}

// Fresh reports whether key holds an entry younger than the TTL.
func (c *TTLCache[V]) Fresh(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores v under key, stamped with the current time.
func (c *TTLCache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[V]{Value: v, UpdatedAt: c.now()}
}

// GetOrLoad returns the fresh value for key, or calls load and stores its
// result. Concurrent callers missing on the same key share one load.
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, load LoadFunc[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	return c.load(ctx, key, load, true)
}

// Refresh calls load regardless of the entry's age and stores the result on
// success. It shares in-flight loads with GetOrLoad for the same key.
func (c *TTLCache[V]) Refresh(ctx context.Context, key string, load LoadFunc[V]) (V, error) {
	return c.load(ctx, key, load, false)
}

// load runs the shared flight detached from the caller's cancellation, so a
// caller that gives up only abandons its own wait. Values carried by ctx are kept.
func (c *TTLCache[V]) load(ctx context.Context, key string, load LoadFunc[V], recheck bool) (V, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// Another caller may have filled the entry between our miss and acquiring the flight.
		if recheck {
			if v, ok := c.Get(key); ok {
				return v, nil
			}
		}
		v, err := load(flightCtx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Delete removes key.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteFunc removes every key for which match returns true and reports how many were removed.
func (c *TTLCache[V]) DeleteFunc(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *TTLCache[V]) fresh(e Entry[V]) bool {
	return c.now().Sub(e.UpdatedAt) < c.ttl
}
