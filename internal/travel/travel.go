package travel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/meetpoint/internal/models"
)

// ErrNoRoute reports that the routing provider found no way between the
// two points for the requested mode. Callers fall back to the geographic
// midpoint rather than failing.
var ErrNoRoute = errors.New("no route")

// Client is the interface used by the solver to look up travel times.
type Client interface {
	Seconds(ctx context.Context, from, to models.Coord, mode models.TravelMode) (float64, error)
}

// Cache stores travel-time lookups keyed by coordinate pair and mode.
type Cache interface {
	Get(ctx context.Context, from, to models.Coord, mode models.TravelMode) (float64, bool)
	Set(ctx context.Context, from, to models.Coord, mode models.TravelMode, seconds float64)
}

// MemoryCache is a tiny in-memory Cache with TTL eviction on read.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: make(map[string]cacheEntry), ttl: ttl}
}

func cacheKey(from, to models.Coord, mode models.TravelMode) string {
	return fmt.Sprintf("%.6f,%.6f->%.6f,%.6f:%s", from.Lat, from.Lng, to.Lat, to.Lng, mode)
}

func (c *MemoryCache) Get(_ context.Context, from, to models.Coord, mode models.TravelMode) (float64, bool) {
	k := cacheKey(from, to, mode)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

func (c *MemoryCache) Set(_ context.Context, from, to models.Coord, mode models.TravelMode, seconds float64) {
	c.mu.Lock()
	c.store[cacheKey(from, to, mode)] = cacheEntry{v: seconds, ts: time.Now()}
	c.mu.Unlock()
}
