package record

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/burugo/record/internal/cache"
	"github.com/burugo/record/internal/pool"
	"github.com/burugo/record/internal/schema"
)

// Opener opens one live handle to the backing store. Every pooled
// connection comes from its own call, so the handles must reach the same
// database. DriverOpener rewrites the SQLite ":memory:" dsn to a named
// shared-cache in-memory database, one per Opener, for that reason.
type Opener = pool.Opener

// PoolStats holds connection pool counters.
type PoolStats = pool.Stats

// Column describes one column for CreateTable.
type Column = schema.Column

// ForeignKey points a column at a column of another table.
type ForeignKey = schema.ForeignKey

// NewColumn returns a nullable column of the given declared type.
func NewColumn(name, sqlType string) Column { return schema.NewColumn(name, sqlType) }

// Result reports the outcome of a write.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Database owns one connection pool and one result cache for its lifetime.
// It is safe for concurrent use.
type Database struct {
	pool   *pool.Pool
	cache  ResultCache
	logger *zap.Logger
	events listenerRegistry
	locks  *cache.KeyLocker // one in-flight query per cache key

	// invalidation orders cache stores against clears. A read stores its
	// rows only if generation has not moved since before its query ran.
	invalidation sync.RWMutex
	generation   atomic.Uint64
}

var memoryDBSeq atomic.Uint64

// sharedMemoryDSN turns ":memory:" (optionally followed by "?params") into a
// uniquely named in-memory database in shared-cache mode. Any other dsn is
// returned unchanged.
func sharedMemoryDSN(dsn string) string {
	rest, ok := strings.CutPrefix(dsn, ":memory:")
	if !ok || (rest != "" && rest[0] != '?') {
		return dsn
	}
	out := fmt.Sprintf("file:record_memdb_%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	if len(rest) > 1 {
		out += "&" + rest[1:]
	}
	return out
}

// DriverOpener returns an Opener that opens dsn with the named database/sql
// driver. Each handle is capped at one open connection so that a pooled
// Conn is exactly one connection to the store. A ":memory:" dsn becomes a
// shared-cache in-memory database private to the returned Opener; it lives
// as long as one of its connections stays open.
func DriverOpener(driverName, dsn string) Opener {
	dsn = sharedMemoryDSN(dsn)
	return func(ctx context.Context) (*sqlx.DB, error) {
		db, err := sqlx.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}
}

// Open creates a Database from cfg. The pool is filled eagerly, so an
// unreachable store fails here with ErrStorageUnavailable.
func Open(ctx context.Context, cfg Config) (*Database, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opener := cfg.Opener
	if opener == nil {
		if cfg.Driver == "" {
			cfg.Driver = DefaultDriver
		}
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: no dsn configured for driver %s", ErrStorageUnavailable, cfg.Driver)
		}
		opener = DriverOpener(cfg.Driver, cfg.DSN)
	}

	rc := cfg.ResultCache
	if rc == nil {
		switch cfg.Cache.Backend {
		case "", CacheBackendMemory:
			rc = NewMemoryCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
		default:
			return nil, fmt.Errorf("cache backend %q requires Config.ResultCache to be set", cfg.Cache.Backend)
		}
	}

	p, err := pool.New(ctx, cfg.PoolSize, opener, logger.Named("pool"))
	if err != nil {
		return nil, err
	}

	logger.Info("database opened",
		zap.String("driver", cfg.Driver),
		zap.Int("pool_size", p.MaxSize()))
	return &Database{pool: p, cache: rc, logger: logger, locks: cache.NewKeyLocker()}, nil
}

// Execute runs one write statement in its own transaction and, on success,
// clears the whole result cache.
func (db *Database) Execute(ctx context.Context, query string, args ...interface{}) (Result, error) {
	start := time.Now()
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	res, err := execInTx(ctx, conn, query, args)
	db.pool.Release(conn)

	if err != nil {
		db.logger.Error("db exec failed", zap.String("sql", query), zap.Any("args", args), zap.Error(err))
		return Result{}, err
	}
	db.logger.Debug("db exec",
		zap.String("sql", query),
		zap.Any("args", args),
		zap.Int64("rows_affected", res.RowsAffected),
		zap.Duration("duration", time.Since(start)))

	if err := db.invalidate(ctx); err != nil {
		db.logger.Error("failed to clear result cache after write", zap.Error(err))
	}
	return res, nil
}

// invalidate drops every cached result. Reads whose query started before it
// will not store their rows.
func (db *Database) invalidate(ctx context.Context) error {
	db.invalidation.Lock()
	defer db.invalidation.Unlock()
	db.generation.Add(1)
	return db.cache.Clear(ctx)
}

func execInTx(ctx context.Context, conn *pool.Conn, query string, args []interface{}) (Result, error) {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: begin transaction: %w", ErrStorageUnavailable, err)
	}
	sqlRes, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return Result{}, fmt.Errorf("%w: exec %q: %w", ErrStorageUnavailable, query, err)
	}
	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("%w: commit: %w", ErrStorageUnavailable, err)
	}

	var res Result
	if n, err := sqlRes.RowsAffected(); err == nil {
		res.RowsAffected = n
	}
	if id, err := sqlRes.LastInsertId(); err == nil {
		res.LastInsertID = id
	}
	return res, nil
}

// FetchOne returns the first row of query, or nil when there is none.
func (db *Database) FetchOne(ctx context.Context, query string, args ...interface{}) (*Row, error) {
	rows, err := db.fetch(ctx, cache.KindOne, query, args)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// FetchAll returns every row of query in store order.
func (db *Database) FetchAll(ctx context.Context, query string, args ...interface{}) ([]*Row, error) {
	rows, err := db.fetch(ctx, cache.KindAll, query, args)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*Row{}
	}
	return rows, nil
}

func (db *Database) fetch(ctx context.Context, kind, query string, args []interface{}) ([]*Row, error) {
	start := time.Now()
	gen := db.generation.Load()
	key, keyErr := cache.Key(kind, query, args)
	if keyErr != nil {
		db.logger.Warn("result not cacheable", zap.String("sql", query), zap.Error(keyErr))
	} else {
		if rows, ok := db.cachedRows(ctx, key, query, args); ok {
			return rows, nil
		}
		// Concurrent misses on the same key wait here and are then served
		// by the first caller's result.
		db.locks.Lock(key)
		defer db.locks.Unlock(key)
		if rows, ok := db.cachedRows(ctx, key, query, args); ok {
			return rows, nil
		}
	}

	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := queryRows(ctx, conn, query, args, kind == cache.KindOne)
	db.pool.Release(conn)
	if err != nil {
		db.logger.Error("db fetch failed", zap.String("sql", query), zap.Any("args", args), zap.Error(err))
		return nil, err
	}

	db.logger.Debug("db fetch",
		zap.String("sql", query),
		zap.Any("args", args),
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)))

	if keyErr == nil && len(rows) > 0 {
		db.storeRows(ctx, key, gen, rows)
	}
	return rows, nil
}

func (db *Database) storeRows(ctx context.Context, key string, gen uint64, rows []*Row) {
	db.invalidation.RLock()
	defer db.invalidation.RUnlock()
	if db.generation.Load() != gen {
		db.logger.Debug("result not cached, a write completed during the read", zap.String("key", key))
		return
	}
	if err := db.cache.Set(ctx, key, cloneRows(rows)); err != nil {
		db.logger.Warn("result cache store failed", zap.String("key", key), zap.Error(err))
	}
}

func (db *Database) cachedRows(ctx context.Context, key, query string, args []interface{}) ([]*Row, bool) {
	cached, ok, err := db.cache.Get(ctx, key)
	if err != nil {
		db.logger.Warn("result cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	db.logger.Debug("db fetch (cache hit)", zap.String("sql", query), zap.Any("args", args))
	return cloneRows(cached), true
}

// queryRows materializes the result set as ordered rows. With first set,
// only the first row is read.
func queryRows(ctx context.Context, conn *pool.Conn, query string, args []interface{}, first bool) ([]*Row, error) {
	rs, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %w", ErrStorageUnavailable, query, err)
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: read columns: %w", ErrStorageUnavailable, err)
	}
	blob := make([]bool, len(cols))
	if types, err := rs.ColumnTypes(); err == nil {
		for i, ct := range types {
			blob[i] = strings.EqualFold(ct.DatabaseTypeName(), "BLOB")
		}
	}

	var out []*Row
	for rs.Next() {
		values, err := rs.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", ErrStorageUnavailable, err)
		}
		row := NewRow()
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok && !blob[i] {
				v = string(b)
			}
			row.Set(col, v)
		}
		out = append(out, row)
		if first {
			break
		}
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %w", ErrStorageUnavailable, err)
	}
	return out, nil
}

// CreateTable creates name with the given columns if it does not exist,
// followed by any requested indexes.
func (db *Database) CreateTable(ctx context.Context, name string, columns []Column) error {
	createSQL, indexSQLs, err := schema.GenerateCreateTableSQL(name, columns)
	if err != nil {
		return err
	}
	if _, err := db.Execute(ctx, createSQL); err != nil {
		return err
	}
	for _, stmt := range indexSQLs {
		if _, err := db.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	db.logger.Info("table ensured", zap.String("table", name), zap.Int("indexes", len(indexSQLs)))
	return nil
}

// ClearCache drops every cached read result.
func (db *Database) ClearCache(ctx context.Context) error {
	return db.invalidate(ctx)
}

// CacheStats returns the result cache counters.
func (db *Database) CacheStats() CacheStats {
	return db.cache.Stats()
}

// PoolStats returns the connection pool counters.
func (db *Database) PoolStats() PoolStats {
	return db.pool.Stats()
}

// Logger returns the database logger.
func (db *Database) Logger() *zap.Logger {
	return db.logger
}

// Close closes every idle connection. Reads and writes fail afterwards.
func (db *Database) Close() error {
	return db.pool.CloseAll()
}
