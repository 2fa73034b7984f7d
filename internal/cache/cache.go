package cache

import (
	"sync"
	"time"
)

// Defaults used when a cache is created with non-positive settings.
const (
	DefaultMaxSize = 1000
	DefaultTTL     = time.Hour
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
	seq        uint64 // insertion order, breaks insertedAt ties
}

// Stats holds cache operation counters for monitoring.
type Stats struct {
	Hits        int
	Misses      int
	Sets        int
	Evictions   int
	Expirations int
	Clears      int
}

type options struct {
	now func() time.Time
}

// Option configures a QueryCache.
type Option func(*options)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// QueryCache memoizes values by key with a time-to-live and a capacity bound.
// Expired entries are removed lazily by Get or displaced by Set's eviction;
// there is no background sweeper.
type QueryCache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	seq     uint64
	stats   Stats
}

// New creates a QueryCache holding at most maxSize entries, each valid for ttl.
// A negative ttl disables expiry; zero selects DefaultTTL.
func New[V any](maxSize int, ttl time.Duration, opts ...Option) *QueryCache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &QueryCache[V]{
		entries: make(map[string]*entry[V], maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     o.now,
	}
}

// Get returns the value stored under key if it is younger than the TTL.
// An expired entry is deleted and reported as absent.
func (c *QueryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.insertedAt) >= c.ttl {
		delete(c.entries, key)
		c.stats.Expirations++
		c.stats.Misses++
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores value under key. When key is new and the cache is full, exactly
// one entry is evicted first: the oldest by insertion time.
func (c *QueryCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.seq++
	c.entries[key] = &entry[V]{value: value, insertedAt: c.now(), seq: c.seq}
	c.stats.Sets++
}

// evictOldest must be called with c.mu held.
func (c *QueryCache[V]) evictOldest() {
	var (
		oldestKey string
		oldest    *entry[V]
	)
	for k, e := range c.entries {
		if oldest == nil || e.insertedAt.Before(oldest.insertedAt) ||
			(e.insertedAt.Equal(oldest.insertedAt) && e.seq < oldest.seq) {
			oldestKey, oldest = k, e
		}
	}
	if oldest != nil {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// Clear drops every entry.
func (c *QueryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.stats.Clears++
}

// Len returns the number of entries held, expired or not.
func (c *QueryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MaxSize returns the capacity bound.
func (c *QueryCache[V]) MaxSize() int { return c.maxSize }

// TTL returns the entry lifetime.
func (c *QueryCache[V]) TTL() time.Duration { return c.ttl }

// Stats returns a snapshot of the counters.
func (c *QueryCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
