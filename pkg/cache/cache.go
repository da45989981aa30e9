package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL support
type Cache[V any] struct {
	mu         sync.RWMutex
	items      map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// Option configures a Cache
type Option func(*options)

type options struct {
	now             func() time.Time
	cleanupInterval time.Duration
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCleanupInterval sets how often expired entries are swept. Zero disables
// the background sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

// New creates a cache with the given default TTL
func New[V any](defaultTTL time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now, cleanupInterval: defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[V]{
		items:       make(map[string]entry[V]),
		defaultTTL:  defaultTTL,
		now:         o.now,
		stopCleanup: make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go c.cleanup(o.cleanupInterval)
	}
	return c
}

// Get retrieves a value from cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || !c.now().Before(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set stores a value with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes a key from cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Invalidate removes every key starting with prefix. An empty prefix removes
// only expired entries.
func (c *Cache[V]) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if prefix == "" {
			if !now.Before(item.expiresAt) {
				delete(c.items, key)
			}
			continue
		}
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Size returns the number of stored entries, expired ones included
func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Invalidate("")
		case <-c.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result. Errors are not cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, value)
	return value, nil
}
