package record

import (
	"context"
	"time"

	"github.com/burugo/record/internal/cache"
)

// memoryCache is the in-process ResultCache.
type memoryCache struct {
	c *cache.QueryCache[[]*Row]
}

// NewMemoryCache returns an in-process ResultCache holding at most maxSize
// entries for ttl each. Non-positive maxSize and zero ttl select the defaults;
// a negative ttl disables expiry.
func NewMemoryCache(maxSize int, ttl time.Duration, opts ...cache.Option) ResultCache {
	return &memoryCache{c: cache.New[[]*Row](maxSize, ttl, opts...)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]*Row, bool, error) {
	rows, ok := m.c.Get(key)
	return rows, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, rows []*Row) error {
	m.c.Set(key, rows)
	return nil
}

func (m *memoryCache) Clear(_ context.Context) error {
	m.c.Clear()
	return nil
}

func (m *memoryCache) Len(_ context.Context) (int, error) {
	return m.c.Len(), nil
}

func (m *memoryCache) Stats() CacheStats {
	return m.c.Stats()
}

// WithCacheClock replaces time.Now in a memory cache, mainly for tests.
var WithCacheClock = cache.WithClock
