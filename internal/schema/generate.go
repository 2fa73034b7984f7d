package schema

import (
	"fmt"
	"strings"

	"github.com/burugo/record/common"
)

// Column describes one column of a table for CREATE TABLE generation.
type Column struct {
	Name       string
	Type       string // declared SQL type, emitted verbatim
	PrimaryKey bool   // emits PRIMARY KEY AUTOINCREMENT
	Unique     bool
	Nullable   bool
	// Default is emitted verbatim after DEFAULT when non-nil. Strings are
	// not quoted, so pass "'text'" for a string literal.
	Default interface{}
	Index   bool        // emits a CREATE INDEX statement after the table
	Ref     *ForeignKey // emits REFERENCES table(column)
}

// ForeignKey points a column at a column of another table.
type ForeignKey struct {
	Table  string
	Column string
}

// columnDefinition renders a single column for CREATE TABLE.
func columnDefinition(col Column) string {
	var b strings.Builder
	b.WriteString(col.Name)
	if col.Type != "" {
		b.WriteString(" ")
		b.WriteString(col.Type)
	}
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if col.Default != nil {
		fmt.Fprintf(&b, " DEFAULT %v", col.Default)
	}
	if col.Ref != nil {
		fmt.Fprintf(&b, " REFERENCES %s(%s)", col.Ref.Table, col.Ref.Column)
	}
	return b.String()
}

// GenerateCreateTableSQL builds the CREATE TABLE IF NOT EXISTS statement for
// tableName, followed by one CREATE INDEX IF NOT EXISTS statement per column
// marked Index.
func GenerateCreateTableSQL(tableName string, columns []Column) (string, []string, error) {
	if !ValidIdentifier(tableName) {
		return "", nil, fmt.Errorf("%w: %q", common.ErrInvalidTable, tableName)
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("%w: table %s", common.ErrNoColumns, tableName)
	}

	defs := make([]string, 0, len(columns))
	var indexSQLs []string
	for _, col := range columns {
		if !ValidIdentifier(col.Name) {
			return "", nil, fmt.Errorf("invalid column name %q for table %s", col.Name, tableName)
		}
		defs = append(defs, columnDefinition(col))
		if col.Index && !col.PrimaryKey {
			indexSQLs = append(indexSQLs, generateCreateIndexSQL(tableName, col.Name))
		}
	}

	createTableSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(defs, ", "))
	return createTableSQL, indexSQLs, nil
}

func generateCreateIndexSQL(tableName, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", tableName, column, tableName, column)
}

// ValidIdentifier reports whether s is a plain SQL identifier
// (letters, digits, underscores, not starting with a digit).
func ValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// NewColumn returns a nullable column of the given declared type.
func NewColumn(name, sqlType string) Column {
	return Column{Name: name, Type: sqlType, Nullable: true}
}

// PK marks the column as the auto-incrementing primary key.
func (c Column) PK() Column { c.PrimaryKey = true; return c }

// NotNull marks the column as not nullable.
func (c Column) NotNull() Column { c.Nullable = false; return c }

// Uniq marks the column as unique.
func (c Column) Uniq() Column { c.Unique = true; return c }

// Indexed requests a secondary index on the column.
func (c Column) Indexed() Column { c.Index = true; return c }

// WithDefault sets the literal default value.
func (c Column) WithDefault(v interface{}) Column { c.Default = v; return c }

// References sets a foreign key to table(column).
func (c Column) References(table, column string) Column {
	c.Ref = &ForeignKey{Table: table, Column: column}
	return c
}
