package record_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burugo/record"
)

// gatedCache pauses the first Get or Set (whichever is gated) until release is closed.
type gatedCache struct {
	record.ResultCache
	gateGet bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedCache(gateGet bool) *gatedCache {
	return &gatedCache{
		ResultCache: record.NewMemoryCache(0, 0),
		gateGet:     gateGet,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (c *gatedCache) wait() {
	c.once.Do(func() {
		close(c.entered)
		<-c.release
	})
}

func (c *gatedCache) Get(ctx context.Context, key string) ([]*record.Row, bool, error) {
	if c.gateGet {
		c.wait()
	}
	return c.ResultCache.Get(ctx, key)
}

func (c *gatedCache) Set(ctx context.Context, key string, rows []*record.Row) error {
	if !c.gateGet {
		c.wait()
	}
	return c.ResultCache.Set(ctx, key, rows)
}

const namesSQL = "SELECT name FROM users ORDER BY id"

func insertUser(t *testing.T, db *record.Database, name string) {
	t.Helper()
	_, err := db.Execute(context.Background(), "INSERT INTO users (name, email) VALUES (?, ?)", name, name+"@x.com")
	require.NoError(t, err)
}

func TestDatabase_WriteDuringCacheStoreIsNotServedStale(t *testing.T) {
	ctx := context.Background()
	gc := newGatedCache(false)
	db := setupTestDB(t, func(cfg *record.Config) { cfg.ResultCache = gc })
	insertUser(t, db, "A")

	readDone := make(chan []*record.Row)
	go func() {
		rows, err := db.FetchAll(ctx, namesSQL)
		assert.NoError(t, err)
		readDone <- rows
	}()
	<-gc.entered

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		_, err := db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "B", "b@x.com")
		assert.NoError(t, err)
	}()

	// The write commits but has to wait for the in-flight store before it
	// clears the cache.
	select {
	case <-writeDone:
		assert.Fail(t, "write finished its cache clear while a store was in progress")
	case <-time.After(200 * time.Millisecond):
	}
	close(gc.release)

	assert.Len(t, <-readDone, 1)
	<-writeDone

	rows, err := db.FetchAll(ctx, namesSQL)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "rows after committed write")
}

func TestDatabase_ReadOverlappingWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	gc := newGatedCache(true)
	db := setupTestDB(t, func(cfg *record.Config) { cfg.ResultCache = gc })
	insertUser(t, db, "A")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_, err := db.FetchAll(ctx, namesSQL)
		assert.NoError(t, err)
	}()
	<-gc.entered

	insertUser(t, db, "B")
	close(gc.release)
	<-readDone

	assert.Zero(t, db.CacheStats().Sets, "a read that began before the write must not fill the cache")

	rows, err := db.FetchAll(ctx, namesSQL)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1, db.CacheStats().Sets)
}

func TestDatabase_ConcurrentMissesQueryOnce(t *testing.T) {
	db, mock := openMockDB(t)
	const callers = 8

	mock.ExpectQuery("SELECT name FROM users").
		WillDelayFor(100 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("A"))

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([][]*record.Row, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			rows, err := db.FetchAll(context.Background(), "SELECT name FROM users")
			assert.NoError(t, err)
			results[i] = rows
		}(i)
	}
	close(start)
	wg.Wait()

	for _, rows := range results {
		require.Len(t, rows, 1)
		name, _ := rows[0].Get("name")
		assert.Equal(t, "A", name)
	}
	stats := db.CacheStats()
	assert.Equal(t, callers-1, stats.Hits, "every other caller is served from the cache")
	assert.Equal(t, 1, stats.Sets)
	assert.Zero(t, db.PoolStats().Overflow, "waiting callers never open a connection")
}
