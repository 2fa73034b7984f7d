package record_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burugo/record"
	"github.com/burugo/record/drivers/db/sqlite"
)

func TestDatabase_ExecuteAndFetch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	res, err := db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "A", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, int64(1), res.LastInsertID)

	row, err := db.FetchOne(ctx, "SELECT id, name, email FROM users WHERE email = ?", "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, []string{"id", "name", "email"}, row.Keys())
	name, _ := row.Get("name")
	assert.Equal(t, "A", name)

	missing, err := db.FetchOne(ctx, "SELECT * FROM users WHERE email = ?", "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := db.FetchAll(ctx, "SELECT * FROM users WHERE email = ?", "nobody@x.com")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestDatabase_ReadsAreCachedUntilWrite(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	_, err := db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "A", "a@x.com")
	require.NoError(t, err)

	const q = "SELECT name FROM users ORDER BY id"
	first, err := db.FetchAll(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 1)

	before := db.CacheStats()
	second, err := db.FetchAll(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before.Hits+1, db.CacheStats().Hits, "second read is served from cache")

	_, err = db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "B", "b@x.com")
	require.NoError(t, err)

	third, err := db.FetchAll(ctx, q)
	require.NoError(t, err)
	assert.Len(t, third, 2, "write cleared the cache so the read recomputes")
}

func TestDatabase_CachedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, err := db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "A", "a@x.com")
	require.NoError(t, err)

	row, err := db.FetchOne(ctx, "SELECT name FROM users")
	require.NoError(t, err)
	row.Set("name", "mutated")

	again, err := db.FetchOne(ctx, "SELECT name FROM users")
	require.NoError(t, err)
	name, _ := again.Get("name")
	assert.Equal(t, "A", name)
}

func TestDatabase_OneAndAllKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	for _, email := range []string{"a@x.com", "b@x.com"} {
		_, err := db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "n", email)
		require.NoError(t, err)
	}

	const q = "SELECT email FROM users ORDER BY id"
	one, err := db.FetchOne(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, one)

	all, err := db.FetchAll(ctx, q)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDatabase_EmptyResultsAreNotCached(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	_, err := db.FetchAll(ctx, "SELECT * FROM users")
	require.NoError(t, err)
	assert.Equal(t, 0, db.CacheStats().Sets)
}

func TestDatabase_CreateTableWithIndexAndForeignKey(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	err := db.CreateTable(ctx, "books", []record.Column{
		record.NewColumn("id", "INTEGER").PK(),
		record.NewColumn("title", "TEXT").NotNull(),
		record.NewColumn("pages", "INTEGER").WithDefault(0),
		record.NewColumn("user_id", "INTEGER").NotNull().Indexed().References("users", "id"),
	})
	require.NoError(t, err)

	idx, err := db.FetchOne(ctx, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", "books")
	require.NoError(t, err)
	require.NotNil(t, idx)
	name, _ := idx.Get("name")
	assert.Equal(t, "idx_books_user_id", name)

	_, err = db.Execute(ctx, "INSERT INTO books (title, user_id) VALUES (?, ?)", "orphan", 42)
	assert.ErrorIs(t, err, record.ErrStorageUnavailable, "foreign keys are enforced")

	err = db.CreateTable(ctx, "users", usersColumns())
	assert.NoError(t, err, "CREATE TABLE IF NOT EXISTS is idempotent")

	err = db.CreateTable(ctx, "bad table", usersColumns())
	assert.ErrorIs(t, err, record.ErrInvalidTable)
}

func TestDatabase_ExecFailureLeavesCacheIntact(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, err := db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "A", "a@x.com")
	require.NoError(t, err)
	_, err = db.FetchAll(ctx, "SELECT * FROM users")
	require.NoError(t, err)
	clears := db.CacheStats().Clears

	_, err = db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "dup", "a@x.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrStorageUnavailable)
	assert.Equal(t, clears, db.CacheStats().Clears)
}

func TestDatabase_ClosedDatabaseFails(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.Close())

	_, err := db.FetchAll(ctx, "SELECT * FROM users")
	assert.ErrorIs(t, err, record.ErrStorageUnavailable)
	assert.ErrorIs(t, err, record.ErrPoolClosed)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := record.Open(ctx, record.Config{})
	assert.ErrorIs(t, err, record.ErrStorageUnavailable, "no dsn")

	_, err = record.Open(ctx, record.Config{
		Opener: sqlite.Opener(filepath.Join(t.TempDir(), "nope", "x.db")),
	})
	assert.ErrorIs(t, err, record.ErrStorageUnavailable)

	_, err = record.Open(ctx, record.Config{
		Opener: sqlite.Opener(filepath.Join(t.TempDir(), "x.db")),
		Cache:  record.CacheConfig{Backend: record.CacheBackendRedis},
	})
	assert.Error(t, err, "redis backend needs an explicit ResultCache")
}

func TestOpen_DriverAndDSN(t *testing.T) {
	ctx := context.Background()
	for _, driverName := range []string{sqlite.DriverCGO, sqlite.DriverPure} {
		t.Run(driverName, func(t *testing.T) {
			db, err := record.Open(ctx, record.Config{
				Driver:   driverName,
				DSN:      filepath.Join(t.TempDir(), "x.db"),
				PoolSize: 1,
			})
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, db.CreateTable(ctx, "users", usersColumns()))
			_, err = db.Execute(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "A", "a@x.com")
			require.NoError(t, err)
			rows, err := db.FetchAll(ctx, "SELECT id, name FROM users")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			id, _ := rows[0].Get("id")
			assert.EqualValues(t, 1, id)
		})
	}
}

func TestDatabase_PoolStats(t *testing.T) {
	db := setupTestDB(t)
	stats := db.PoolStats()
	assert.Equal(t, 2, stats.Opened)
	assert.Zero(t, stats.Overflow)
	assert.NotNil(t, db.Logger())
}
