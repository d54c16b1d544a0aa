package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/order-weather-insights/internal/observability"
)

// CachedProvider wraps a Provider with an in-memory TTL+LRU cache keyed by
// location and date. Archive weather is immutable once published, so the
// TTL mostly guards against stale negative upstream states rather than
// changing data.
type CachedProvider struct {
	inner   Provider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner Provider, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedProvider) Daily(ctx context.Context, loc Location, dateISO string) (Observation, error) {
	key := fmt.Sprintf("%.4f,%.4f|%s", loc.Latitude, loc.Longitude, dateISO)
	if obs, ok := c.cache.get(key); ok {
		c.metrics.FetchCache.WithLabelValues("hit").Inc()
		return obs, nil
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	obs, err := c.inner.Daily(ctx, loc, dateISO)
	if err != nil {
		// Errors are never cached so transient faults can be retried.
		return obs, err
	}
	c.cache.put(key, obs)
	return obs, nil
}

// lruCache is a thread-safe LRU cache of Observations with per-entry expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key       string
	value     Observation
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Observation{}, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return Observation{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiry
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiry}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
