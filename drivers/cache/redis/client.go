// Package redis provides a record.ResultCache backed by Redis.
//
// Entries live under "<prefix>:entry:<key>" as CBOR blobs. A sorted set at
// "<prefix>:index" scores every key by its insertion sequence so the oldest
// entry can be evicted when the cache is full. Expiry is checked lazily on
// read, as in the in-memory cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/burugo/record"
	"github.com/burugo/record/internal/cache"
)

// Client implements record.ResultCache using Redis.
type Client struct {
	redisClient       *redis.Client
	prefix            string
	maxSize           int
	ttl               time.Duration
	now               func() time.Time
	createdInternally bool // Close only closes clients created by NewClient

	mu    sync.Mutex // Protects stats
	stats record.CacheStats
}

// Ensure Client implements record.ResultCache and io.Closer.
var (
	_ record.ResultCache = (*Client)(nil)
	_ io.Closer          = (*Client)(nil)
)

// Options holds configuration for the Redis cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key namespace, defaults to "record"
	MaxSize  int           // non-positive selects the default
	TTL      time.Duration // zero selects the default, negative disables expiry
}

// NewClient creates a Redis result cache. If redisCli is not nil it is used
// directly; otherwise a client is created from opts and pinged.
func NewClient(redisCli *redis.Client, opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}

	rdb := redisCli
	createdInternally := false
	if rdb == nil {
		rdb = redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
		createdInternally = true

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
	}

	c := &Client{
		redisClient:       rdb,
		prefix:            opts.Prefix,
		maxSize:           opts.MaxSize,
		ttl:               opts.TTL,
		now:               time.Now,
		createdInternally: createdInternally,
	}
	if c.prefix == "" {
		c.prefix = "record"
	}
	if c.maxSize <= 0 {
		c.maxSize = cache.DefaultMaxSize
	}
	if c.ttl == 0 {
		c.ttl = cache.DefaultTTL
	}
	return c, nil
}

// Close implements io.Closer. Only closes the redis client if NewClient created it.
func (c *Client) Close() error {
	if c.createdInternally && c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

func (c *Client) entryKey(key string) string { return c.prefix + ":entry:" + key }
func (c *Client) indexKey() string           { return c.prefix + ":index" }
func (c *Client) seqKey() string             { return c.prefix + ":seq" }

func (c *Client) count(f func(*record.CacheStats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}

// Get implements record.ResultCache.
func (c *Client) Get(ctx context.Context, key string) ([]*record.Row, bool, error) {
	data, err := c.redisClient.Get(ctx, c.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.count(func(s *record.CacheStats) { s.Misses++ })
		return nil, false, nil
	}
	if err != nil {
		c.count(func(s *record.CacheStats) { s.Misses++ })
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	insertedAt, rows, err := decodeEntry(data)
	if err != nil {
		c.count(func(s *record.CacheStats) { s.Misses++ })
		return nil, false, err
	}
	if c.ttl > 0 && c.now().Sub(insertedAt) >= c.ttl {
		if err := c.remove(ctx, key); err != nil {
			return nil, false, err
		}
		c.count(func(s *record.CacheStats) { s.Expirations++; s.Misses++ })
		return nil, false, nil
	}
	c.count(func(s *record.CacheStats) { s.Hits++ })
	return rows, true, nil
}

// Set implements record.ResultCache. When key is new and the cache is full,
// the entry with the lowest insertion sequence is evicted first.
func (c *Client) Set(ctx context.Context, key string, rows []*record.Row) error {
	data, err := encodeEntry(c.now(), rows)
	if err != nil {
		return err
	}

	err = c.redisClient.ZScore(ctx, c.indexKey(), key).Err()
	isNew := errors.Is(err, redis.Nil)
	if err != nil && !isNew {
		return fmt.Errorf("redis zscore %s: %w", key, err)
	}
	if isNew {
		size, err := c.redisClient.ZCard(ctx, c.indexKey()).Result()
		if err != nil {
			return fmt.Errorf("redis zcard: %w", err)
		}
		if size >= int64(c.maxSize) {
			if err := c.evictOldest(ctx); err != nil {
				return err
			}
		}
	}

	seq, err := c.redisClient.Incr(ctx, c.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	_, err = c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.entryKey(key), data, 0)
		pipe.ZAdd(ctx, c.indexKey(), redis.Z{Score: float64(seq), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	c.count(func(s *record.CacheStats) { s.Sets++ })
	return nil
}

func (c *Client) evictOldest(ctx context.Context) error {
	popped, err := c.redisClient.ZPopMin(ctx, c.indexKey(), 1).Result()
	if err != nil {
		return fmt.Errorf("redis zpopmin: %w", err)
	}
	for _, z := range popped {
		member, _ := z.Member.(string)
		if err := c.redisClient.Del(ctx, c.entryKey(member)).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", member, err)
		}
		c.count(func(s *record.CacheStats) { s.Evictions++ })
	}
	return nil
}

func (c *Client) remove(ctx context.Context, key string) error {
	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.entryKey(key))
		pipe.ZRem(ctx, c.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis remove %s: %w", key, err)
	}
	return nil
}

// Clear implements record.ResultCache by deleting every key in the namespace.
func (c *Client) Clear(ctx context.Context) error {
	var keys []string
	iter := c.redisClient.Scan(ctx, 0, c.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", c.prefix, err)
	}
	for start := 0; start < len(keys); start += 100 {
		end := min(start+100, len(keys))
		if err := c.redisClient.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	c.count(func(s *record.CacheStats) { s.Clears++ })
	return nil
}

// Len implements record.ResultCache.
func (c *Client) Len(ctx context.Context) (int, error) {
	n, err := c.redisClient.ZCard(ctx, c.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcard: %w", err)
	}
	return int(n), nil
}

// Stats implements record.ResultCache.
func (c *Client) Stats() record.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
