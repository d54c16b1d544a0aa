package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/order-weather-insights/internal/observability"
)

// --- mock for cache tests ---

type countingProvider struct {
	calls int
	obs   Observation
	err   error
}

func (m *countingProvider) Daily(_ context.Context, _ Location, dateISO string) (Observation, error) {
	m.calls++
	if m.err != nil {
		return Observation{}, m.err
	}
	obs := m.obs
	obs.DateISO = dateISO
	return obs, nil
}

var testLoc = Location{Latitude: 30.2672, Longitude: -97.7431}

// --- CachedProvider tests ---

func TestCachedProvider_CacheHit(t *testing.T) {
	inner := &countingProvider{obs: Observation{TemperatureC: 21.5}}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	o1, err := cached.Daily(context.Background(), testLoc, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 21.5, o1.TemperatureC)

	o2, err := cached.Daily(context.Background(), testLoc, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 21.5, o2.TemperatureC)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedProvider_DifferentKeysMiss(t *testing.T) {
	inner := &countingProvider{obs: Observation{TemperatureC: 20}}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	_, _ = cached.Daily(context.Background(), testLoc, "2024-01-01")
	_, _ = cached.Daily(context.Background(), testLoc, "2024-01-02")
	other := Location{Latitude: 32.7767, Longitude: -96.797}
	_, _ = cached.Daily(context.Background(), other, "2024-01-01")

	assert.Equal(t, 3, inner.calls)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("upstream down")}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	_, err := cached.Daily(context.Background(), testLoc, "2024-01-01")
	require.Error(t, err)
	_, err = cached.Daily(context.Background(), testLoc, "2024-01-01")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls, "errors must be retried, not served from cache")
}

func TestCachedProvider_TTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &countingProvider{obs: Observation{TemperatureC: 18}}
	cached := NewCachedProvider(inner, 10, time.Hour, clock, observability.NewMetricsForTesting())

	_, err := cached.Daily(context.Background(), testLoc, "2024-01-01")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	_, err = cached.Daily(context.Background(), testLoc, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "entry still fresh")

	clock.Advance(31 * time.Minute)
	_, err = cached.Daily(context.Background(), testLoc, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "entry past TTL should be refetched")
}

// --- LRU cache unit tests ---

func newTestCache(maxEntries int) *lruCache {
	return newLRUCache(maxEntries, time.Hour, clockwork.NewFakeClock())
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newTestCache(3)

	c.put("a", Observation{TemperatureC: 1})
	c.put("b", Observation{TemperatureC: 2})

	obs, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, obs.TemperatureC)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newTestCache(2)

	c.put("a", Observation{TemperatureC: 1})
	c.put("b", Observation{TemperatureC: 2})
	c.put("c", Observation{TemperatureC: 3}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	obs, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, obs.TemperatureC)

	obs, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 3.0, obs.TemperatureC)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newTestCache(2)

	c.put("a", Observation{TemperatureC: 1})
	c.put("b", Observation{TemperatureC: 2})

	// Access "a" to promote it
	c.get("a")

	// Inserting "c" should evict "b", not "a"
	c.put("c", Observation{TemperatureC: 3})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newTestCache(2)

	c.put("a", Observation{TemperatureC: 1})
	c.put("a", Observation{TemperatureC: 9})

	obs, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 9.0, obs.TemperatureC)
}

func TestLRUCache_ExpiredEntryRemoved(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newLRUCache(2, time.Minute, clock)

	c.put("a", Observation{TemperatureC: 1})
	clock.Advance(2 * time.Minute)

	_, ok := c.get("a")
	assert.False(t, ok)
	assert.Empty(t, c.entries)
}
