package record

import (
	"context"

	"github.com/burugo/record/internal/cache"
)

// ResultCache memoizes read results for a Database. Keys are produced by the
// Database and encode the read kind, the SQL text and the bound values.
//
// Implementations must not retain or mutate the slices they are given; the
// Database clones rows on the way in and out.
type ResultCache interface {
	// Get returns the rows stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]*Row, bool, error)
	// Set stores rows under key, evicting the oldest entry when full.
	Set(ctx context.Context, key string, rows []*Row) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
	// Len returns the number of entries currently held.
	Len(ctx context.Context) (int, error)
	// Stats returns operation counters.
	Stats() CacheStats
}

// CacheStats holds cache operation counters for monitoring.
type CacheStats = cache.Stats
