package record

import (
	"context"
	"fmt"
	"reflect"

	"github.com/burugo/record/internal/schema"
	"github.com/burugo/record/internal/sqlbuilder"
)

// Model is the active-record accessor for one entity type bound to one
// Database. Create it with Bind.
type Model[T any, PT interface {
	*T
	Entity
}] struct {
	db    *Database
	table string
	info  *schema.ModelInfo
}

// Bind returns the accessor for entity type T on db. The table name comes
// from T's TableName method.
//
//	users, err := record.Bind[User](db)
func Bind[T any, PT interface {
	*T
	Entity
}](db *Database) (*Model[T, PT], error) {
	if db == nil {
		return nil, ErrDatabaseNotSet
	}
	var zero T
	table := PT(&zero).TableName()
	if !schema.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	info, err := schema.GetCachedModelInfo(reflect.TypeOf(zero))
	if err != nil {
		return nil, fmt.Errorf("failed to get model info for type %T: %w", zero, err)
	}
	return &Model[T, PT]{db: db, table: table, info: info}, nil
}

// DB returns the Database the model is bound to.
func (m *Model[T, PT]) DB() *Database { return m.db }

// Table returns the bound table name.
func (m *Model[T, PT]) Table() string { return m.table }

// Query returns a fresh builder over the model's table.
func (m *Model[T, PT]) Query() *QueryBuilder {
	return NewQueryBuilder(m.table)
}

// Find returns the entity with the given id, or nil when there is none.
func (m *Model[T, PT]) Find(ctx context.Context, id int64) (*T, error) {
	return m.fetchOne(ctx, m.Query().Where(schema.PkName+" = ?", id))
}

// All returns every row of the table.
func (m *Model[T, PT]) All(ctx context.Context) ([]*T, error) {
	return m.Fetch(ctx, m.Query())
}

// Where returns every row matching cond.
func (m *Model[T, PT]) Where(ctx context.Context, cond string, values ...interface{}) ([]*T, error) {
	return m.Fetch(ctx, m.Query().Where(cond, values...))
}

// First returns the first row matching cond, or the first row of the table
// when cond is empty. It returns nil when nothing matches.
func (m *Model[T, PT]) First(ctx context.Context, cond string, values ...interface{}) (*T, error) {
	qb := m.Query()
	if cond != "" {
		qb.Where(cond, values...)
	}
	return m.fetchOne(ctx, qb)
}

// Fetch runs a caller-built query and hydrates every row.
func (m *Model[T, PT]) Fetch(ctx context.Context, qb *QueryBuilder) ([]*T, error) {
	query, args := qb.Build()
	rows, err := m.db.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		inst, err := m.hydrate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Count returns the number of rows matching cond, or of the whole table when
// cond is empty.
func (m *Model[T, PT]) Count(ctx context.Context, cond string, values ...interface{}) (int64, error) {
	row, err := m.db.FetchOne(ctx, sqlbuilder.BuildCountSQL(m.table, cond), values...)
	if err != nil || row == nil {
		return 0, err
	}
	v, _ := row.Get("count")
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("count %s: unexpected value %v (%T)", m.table, v, v)
	}
	return n, nil
}

func (m *Model[T, PT]) fetchOne(ctx context.Context, qb *QueryBuilder) (*T, error) {
	query, args := qb.Build()
	row, err := m.db.FetchOne(ctx, query, args...)
	if err != nil || row == nil {
		return nil, err
	}
	return m.hydrate(row)
}
