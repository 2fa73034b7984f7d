package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBase struct {
	ID    int64                  `db:"id"`
	Extra map[string]interface{} `db:"-"`
	state int
}

type testUser struct {
	testBase
	Name     string `db:"name"`
	Email    string `db:"email,omitempty"`
	Nickname string
	secret   string `db:"secret"`
}

type noPK struct {
	Name string `db:"name"`
}

func TestGetCachedModelInfo(t *testing.T) {
	info, err := GetCachedModelInfo(reflect.TypeOf(&testUser{}))
	require.NoError(t, err)

	assert.Equal(t, "id", info.PkName)
	assert.Equal(t, []string{"id", "name", "email"}, info.Columns)
	assert.Equal(t, []int{0, 0}, info.ColumnToField["id"].Index)
	assert.Equal(t, "Email", info.ColumnToField["email"].GoName)
	assert.True(t, info.ColumnToField["email"].OmitEmpty)
	assert.False(t, info.ColumnToField["name"].OmitEmpty)

	again, err := GetCachedModelInfo(reflect.TypeOf(testUser{}))
	require.NoError(t, err)
	assert.Same(t, info, again, "metadata is cached per type")
}

func TestGetCachedModelInfo_Errors(t *testing.T) {
	_, err := GetCachedModelInfo(reflect.TypeOf(noPK{}))
	assert.Error(t, err)

	_, err = GetCachedModelInfo(reflect.TypeOf(42))
	assert.Error(t, err)
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "email", ColumnName("email,omitempty"))
	assert.Equal(t, "-", ColumnName("-"))
	assert.Equal(t, "", ColumnName(""))
}
