// Package sqlbuilder renders the write statements issued by models.
package sqlbuilder

import (
	"errors"
	"fmt"
	"strings"
)

var errIncomplete = errors.New("sqlbuilder: incomplete statement")

// BuildInsertSQL constructs an INSERT statement for the given table and columns.
// With no columns it falls back to DEFAULT VALUES.
func BuildInsertSQL(tableName string, columns []string) (string, error) {
	if tableName == "" {
		return "", fmt.Errorf("%w: insert without table", errIncomplete)
	}
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", tableName), nil
	}
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", ")), nil
}

// BuildUpdateSQL constructs an UPDATE of columns for the row whose pkName
// matches the trailing placeholder.
func BuildUpdateSQL(tableName string, columns []string, pkName string) (string, error) {
	if tableName == "" || len(columns) == 0 || pkName == "" {
		return "", fmt.Errorf("%w: update table=%q columns=%d pk=%q", errIncomplete, tableName, len(columns), pkName)
	}
	setClauses := make([]string, len(columns))
	for i, c := range columns {
		setClauses[i] = c + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", tableName, strings.Join(setClauses, ", "), pkName), nil
}

// BuildDeleteSQL constructs a DELETE statement for the given table and primary key.
func BuildDeleteSQL(tableName, pkName string) (string, error) {
	if tableName == "" || pkName == "" {
		return "", fmt.Errorf("%w: delete table=%q pk=%q", errIncomplete, tableName, pkName)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", tableName, pkName), nil
}

// BuildCountSQL constructs a SELECT COUNT(*) statement for the given table and optional WHERE clause.
func BuildCountSQL(tableName string, whereClause string) string {
	query := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", tableName)
	if whereClause != "" {
		query = fmt.Sprintf("%s WHERE %s", query, whereClause)
	}
	return query
}
