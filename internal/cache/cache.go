package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is an in-process TTL map. Expired entries are dropped lazily on Get
// and periodically by a background sweep until Close is called.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New starts a cache that sweeps expired entries every interval.
// A non-positive interval disables the sweep.
func New[V any](interval time.Duration) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]item[V]),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if interval > 0 {
		go c.cleanupLoop(interval)
	}

	return c
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}

	if c.now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return zero, false
	}

	return it.value, true
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background sweep.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Key hashes the parts into a fixed-size cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
		}
	}
}
