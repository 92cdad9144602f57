package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/finplan/pkg/cache"
	"github.com/amirasaad/finplan/pkg/domain/budget"
)

// MemoryCache implements AggregateCache using in-memory storage.
// Expired entries are dropped lazily on read and by a periodic sweep.
type MemoryCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	now   func() time.Time
}

var _ cache.AggregateCache = (*MemoryCache)(nil)

// NewMemoryCache creates a new in-memory cache. The sweep goroutine stops
// when ctx is done.
func NewMemoryCache(ctx context.Context) *MemoryCache {
	c := &MemoryCache{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
	}
	go c.cleanup(ctx, 5*time.Minute)
	return c
}

// Get retrieves an aggregate from cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*budget.MonthlyAggregate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[key]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, nil
	}
	agg := entry.agg
	return &agg, nil
}

// Set stores a copy of agg with the given TTL.
func (c *MemoryCache) Set(_ context.Context, key string, agg *budget.MonthlyAggregate, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &cacheEntry{
		agg:       *agg,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Delete removes an aggregate from cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
	return nil
}

func (c *MemoryCache) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, entry := range c.cache {
				if now.After(entry.expiresAt) {
					delete(c.cache, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

type cacheEntry struct {
	agg       budget.MonthlyAggregate
	expiresAt time.Time
}
