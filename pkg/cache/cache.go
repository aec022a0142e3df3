// Package cache provides the session-scoped TTL caches shared by the
// enrichment, relationship and retrieval layers.
package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config controls expiry and size. A zero TTL never expires and a zero
// MaxEntries never evicts.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	// Now is the clock used for timestamps; defaults to time.Now.
	Now func() time.Time
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a concurrency-safe map with write timestamps. When full it
// evicts the entry with the oldest write timestamp.
type Cache[K comparable, V any] struct {
	config Config
	mu     sync.RWMutex
	items  map[K]entry[V]
	group  singleflight.Group
}

func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Cache[K, V]{
		config: config,
		items:  make(map[K]entry[V]),
	}
}

// Get returns the value for key if present and still fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with the current clock time.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.config.MaxEntries > 0 {
		for len(c.items) >= c.config.MaxEntries {
			c.evictOldest()
		}
	}
	c.items[key] = entry[V]{value: value, storedAt: c.config.Now()}
}

// GetOrLoad returns the fresh cached value or runs load once per key, even
// when several goroutines miss at the same time. Errors are not cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(fmt.Sprint(key), func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return v, err
		}
		c.Put(key, v)
		return v, nil
	})
	v, _ := res.(V)
	return v, err
}

// Delete drops key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Purge removes expired entries and reports how many were dropped.
func (c *Cache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.items {
		if c.expired(e) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) expired(e entry[V]) bool {
	if c.config.TTL <= 0 {
		return false
	}
	return c.config.Now().Sub(e.storedAt) >= c.config.TTL
}

// evictOldest assumes the write lock is held.
func (c *Cache[K, V]) evictOldest() {
	var (
		oldestKey K
		oldest    time.Time
		found     bool
	)
	for k, e := range c.items {
		if !found || e.storedAt.Before(oldest) {
			oldestKey, oldest, found = k, e.storedAt, true
		}
	}
	if found {
		delete(c.items, oldestKey)
	}
}
