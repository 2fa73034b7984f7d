package record_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burugo/record"
)

// openMockDB returns a Database whose single pooled connection is backed by sqlmock.
func openMockDB(t *testing.T) (*record.Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := record.Open(context.Background(), record.Config{
		PoolSize: 1,
		Opener: func(ctx context.Context) (*sqlx.DB, error) {
			return sqlx.NewDb(mockDB, "sqlmock"), nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		_ = db.Close()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return db, mock
}

func TestDatabase_ExecFailureWrapsCause(t *testing.T) {
	db, mock := openMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("A"))
	_, err := db.FetchAll(ctx, "SELECT name FROM users")
	require.NoError(t, err)

	cause := errors.New("disk I/O error")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnError(cause)
	mock.ExpectRollback()

	_, err = db.Execute(ctx, "UPDATE users SET name = ?", "B")
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)

	rows, err := db.FetchAll(ctx, "SELECT name FROM users")
	require.NoError(t, err, "served from the cache; no query expectation remains")
	assert.Len(t, rows, 1)
}

func TestDatabase_CommitFailure(t *testing.T) {
	db, mock := openMockDB(t)

	cause := errors.New("commit refused")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit().WillReturnError(cause)

	_, err := db.Execute(context.Background(), "DELETE FROM users")
	assert.ErrorIs(t, err, record.ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestDatabase_QueryFailure(t *testing.T) {
	db, mock := openMockDB(t)

	cause := errors.New("no such table: users")
	mock.ExpectQuery("SELECT").WillReturnError(cause)

	row, err := db.FetchOne(context.Background(), "SELECT * FROM users WHERE id = ?", 1)
	assert.Nil(t, row)
	assert.ErrorIs(t, err, record.ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestDatabase_ExecuteReportsResult(t *testing.T) {
	db, mock := openMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WithArgs("A", "a@x.com").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	res, err := db.Execute(context.Background(), "INSERT INTO users (name, email) VALUES (?, ?)", "A", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, record.Result{RowsAffected: 1, LastInsertID: 9}, res)
	assert.Equal(t, 1, db.CacheStats().Clears)
}
