package record_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/burugo/record"
	"github.com/burugo/record/drivers/db/sqlite"
)

// User is the entity used across the integration tests.
type User struct {
	record.BaseModel
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at,omitempty"`
}

func (User) TableName() string { return "users" }

func usersColumns() []record.Column {
	return []record.Column{
		record.NewColumn("id", "INTEGER").PK(),
		record.NewColumn("name", "TEXT").NotNull(),
		record.NewColumn("email", "TEXT").NotNull().Uniq(),
		record.NewColumn("created_at", "TIMESTAMP").WithDefault("CURRENT_TIMESTAMP"),
	}
}

// setupTestDB opens a file-backed SQLite database with a users table.
func setupTestDB(tb testing.TB, mutate ...func(*record.Config)) *record.Database {
	tb.Helper()
	cfg := record.DefaultConfig()
	cfg.Driver = sqlite.DriverCGO
	cfg.Opener = sqlite.Opener(filepath.Join(tb.TempDir(), "test.db"))
	cfg.PoolSize = 2
	cfg.Logger = zaptest.NewLogger(tb)
	for _, m := range mutate {
		m(&cfg)
	}

	db, err := record.Open(context.Background(), cfg)
	require.NoError(tb, err, "Failed to open database")
	tb.Cleanup(func() { _ = db.Close() })

	require.NoError(tb, db.CreateTable(context.Background(), "users", usersColumns()), "Failed to create users table")
	return db
}

func bindUsers(tb testing.TB, db *record.Database) *record.Model[User, *User] {
	tb.Helper()
	users, err := record.Bind[User](db)
	require.NoError(tb, err)
	return users
}
