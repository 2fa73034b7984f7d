package sqlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInsertSQL(t *testing.T) {
	sql, err := BuildInsertSQL("users", []string{"name", "email"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name, email) VALUES (?, ?)", sql)

	sql, err = BuildInsertSQL("users", nil)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users DEFAULT VALUES", sql)

	_, err = BuildInsertSQL("", []string{"a"})
	assert.Error(t, err)
}

func TestBuildUpdateSQL(t *testing.T) {
	sql, err := BuildUpdateSQL("users", []string{"name", "email"}, "id")
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = ?, email = ? WHERE id = ?", sql)

	_, err = BuildUpdateSQL("users", nil, "id")
	assert.Error(t, err)
}

func TestBuildDeleteSQL(t *testing.T) {
	sql, err := BuildDeleteSQL("users", "id")
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE id = ?", sql)

	_, err = BuildDeleteSQL("users", "")
	assert.Error(t, err)
}

func TestBuildCountSQL(t *testing.T) {
	assert.Equal(t, "SELECT COUNT(*) AS count FROM users", BuildCountSQL("users", ""))
	assert.Equal(t, "SELECT COUNT(*) AS count FROM users WHERE name = ?", BuildCountSQL("users", "name = ?"))
}
