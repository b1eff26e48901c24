package market

import (
	"fmt"
	"sync"
	"time"

	"upstox-analyst/internal/models"
)

// Cache is a bounded TTL memo for fetch results, keyed by the full fetch
// coordinates. Entries past the TTL are ignored on read; when the cache
// is full the entry with the oldest fetch time is evicted.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]cacheEntry
	now        func() time.Time
}

type cacheEntry struct {
	value     interface{}
	fetchedAt time.Time
}

// NewCache creates a cache with the given staleness window and capacity.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry),
		now:        time.Now,
	}
}

// CandleKey builds the composite cache key for a candle fetch.
func CandleKey(instrumentKey string, from, to time.Time, interval models.Interval) string {
	return fmt.Sprintf("candles|%s|%s|%s|%s",
		instrumentKey, from.Format("2006-01-02"), to.Format("2006-01-02"), interval)
}

// QuoteKey builds the cache key for a quote fetch.
func QuoteKey(instrumentKey string) string {
	return "quote|" + instrumentKey
}

// Get returns the cached value when present and fresh.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Put stores a value, evicting the oldest entry when at capacity.
func (c *Cache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.fetchedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.fetchedAt
				first = false
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
}

// Len returns the number of live entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
