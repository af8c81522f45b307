package loader

import (
	"sync"
	"time"

	"github.com/aresmaps/mars_relief/internal/dem"
)

// ttlCache is the loader's short-lived read cache. It exists to absorb
// bursts of concurrent requests over the same tile and is deliberately
// small; the result cache upstream is the real memoization layer.
type ttlCache struct {
	mu      sync.Mutex
	entries map[string]ttlEntry
	max     int
	ttl     time.Duration
}

type ttlEntry struct {
	tile    *dem.Tile
	expires time.Time
}

func newTTLCache(max int, ttl time.Duration) *ttlCache {
	if max <= 0 {
		max = 1
	}
	return &ttlCache{
		entries: make(map[string]ttlEntry),
		max:     max,
		ttl:     ttl,
	}
}

func (c *ttlCache) get(key string) (*dem.Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.tile, true
}

func (c *ttlCache) put(key string, tile *dem.Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.max {
		c.dropOneLocked()
	}
	c.entries[key] = ttlEntry{tile: tile, expires: time.Now().Add(c.ttl)}
}

// dropOneLocked removes an expired entry if any exists, otherwise the
// entry closest to expiry. Entries are few, linear scan is fine.
func (c *ttlCache) dropOneLocked() {
	now := time.Now()
	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
			return
		}
		if victim == "" || e.expires.Before(soonest) {
			victim = k
			soonest = e.expires
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}
