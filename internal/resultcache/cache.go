// Package resultcache holds finished renders keyed by tile and
// parameter identity, with single-flight admission so identical
// concurrent requests share one computation.
package resultcache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/pkg/logger"
	"github.com/aresmaps/mars_relief/pkg/metrics"
)

// Result is an encoded render ready to serve. The byte slice is shared
// between cache and callers and must be treated as immutable.
type Result struct {
	PNG    []byte
	Width  int
	Height int
}

type entry struct {
	key     string
	tileKey string
	result  *Result

	prev *entry
	next *entry
}

// Cache is a fixed-capacity LRU over render results.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    lruList
	capacity int

	group  singleflight.Group
	logger logger.Logger
}

func New(capacity int, l logger.Logger) *Cache {
	if capacity < 1 {
		capacity = 1
	}

	return &Cache{
		entries:  make(map[string]*entry, capacity),
		capacity: capacity,
		logger:   l,
	}
}

// Get returns a cached result without triggering computation.
func (c *Cache) Get(key render.JobKey) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, false
	}

	c.order.moveToFront(e)
	metrics.CacheHits.Inc()

	return e.result, true
}

// GetOrRender returns the cached result for key, or runs fn exactly
// once per key across all concurrent callers and caches its output.
// A caller whose context ends while waiting detaches with the context
// error; the computation itself keeps running for the remaining
// waiters. Errors from fn are returned to every waiter and never
// cached.
func (c *Cache) GetOrRender(ctx context.Context, key render.JobKey, fn func(context.Context) (*Result, error)) (*Result, error) {
	if res, ok := c.Get(key); ok {
		return res, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// Detached from any single caller's lifetime.
		res, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.put(key, res)

		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			metrics.CoalescedWaits.Inc()
		}
		return r.Val.(*Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) put(key render.JobKey, res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	if e, ok := c.entries[k]; ok {
		e.result = res
		c.order.moveToFront(e)
		return
	}

	for len(c.entries) >= c.capacity {
		victim := c.order.back()
		if victim == nil {
			break
		}
		c.order.remove(victim)
		delete(c.entries, victim.key)
		metrics.CacheEvictions.Inc()
	}

	e := &entry{key: k, tileKey: key.TileKey, result: res}
	c.entries[k] = e
	c.order.pushFront(e)
}

// Invalidate removes every cached result rendered from the given tile,
// regardless of parameters, and reports how many were dropped.
func (c *Cache) Invalidate(tileKey string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if e.tileKey != tileKey {
			continue
		}
		c.order.remove(e)
		delete(c.entries, k)
		removed++
	}

	if removed > 0 {
		c.logger.Info("invalidated cached renders", "tile", tileKey, "count", removed)
	}

	return removed
}

// Len reports the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
