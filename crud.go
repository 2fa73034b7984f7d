package record

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/burugo/record/internal/schema"
	"github.com/burugo/record/internal/sqlbuilder"
)

// Save writes v. A persisted instance is updated in full; a new instance is
// inserted and receives the id assigned by the store.
func (m *Model[T, PT]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return fmt.Errorf("save %s: nil instance", m.table)
	}
	e := PT(v)
	b := e.base()
	if b.state == StateDeleted {
		return fmt.Errorf("save %s id %d: %w", m.table, b.ID, ErrRecordDeleted)
	}

	if err := m.db.triggerEvent(ctx, EventTypeBeforeSave, e, nil); err != nil {
		return fmt.Errorf("BeforeSave hook failed: %w", err)
	}

	var (
		columns []string
		err     error
	)
	if b.state == StatePersisted {
		columns, err = m.update(ctx, v)
	} else {
		columns, err = m.insert(ctx, v)
	}
	if err != nil {
		return err
	}

	m.db.triggerAfter(ctx, EventTypeAfterSave, e, columns)
	return nil
}

func (m *Model[T, PT]) update(ctx context.Context, v *T) ([]string, error) {
	b := PT(v).base()
	attrs := m.attributes(v, true)

	var (
		columns []string
		args    []interface{}
	)
	for _, col := range attrs.Keys() {
		if col == schema.PkName {
			continue
		}
		val, _ := attrs.Get(col)
		columns = append(columns, col)
		args = append(args, val)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("update %s id %d: %w", m.table, b.ID, ErrNoColumns)
	}
	args = append(args, b.ID)

	query, err := sqlbuilder.BuildUpdateSQL(m.table, columns, schema.PkName)
	if err != nil {
		return nil, err
	}
	res, err := m.db.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		m.db.logger.Warn("update matched no rows", zap.String("table", m.table), zap.Int64("id", b.ID))
	}
	return columns, nil
}

func (m *Model[T, PT]) insert(ctx context.Context, v *T) ([]string, error) {
	e := PT(v)
	b := e.base()
	if err := m.db.triggerEvent(ctx, EventTypeBeforeCreate, e, nil); err != nil {
		return nil, fmt.Errorf("BeforeCreate hook failed: %w", err)
	}

	rv := reflect.ValueOf(v).Elem()
	attrs := m.attributes(v, true)
	var (
		columns []string
		args    []interface{}
	)
	for _, col := range attrs.Keys() {
		val, _ := attrs.Get(col)
		if col == schema.PkName && b.ID == 0 {
			continue
		}
		if fi, ok := m.info.ColumnToField[col]; ok && fi.OmitEmpty && rv.FieldByIndex(fi.Index).IsZero() {
			continue
		}
		columns = append(columns, col)
		args = append(args, val)
	}

	query, err := sqlbuilder.BuildInsertSQL(m.table, columns)
	if err != nil {
		return nil, err
	}
	res, err := m.db.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	id := b.ID
	if res.LastInsertID != 0 {
		id = res.LastInsertID
	}
	b.MarkPersisted(id)

	m.db.triggerAfter(ctx, EventTypeAfterCreate, e, columns)
	return columns, nil
}

// Delete removes v's row. v must have been loaded or saved.
func (m *Model[T, PT]) Delete(ctx context.Context, v *T) error {
	if v == nil {
		return fmt.Errorf("delete %s: nil instance", m.table)
	}
	e := PT(v)
	b := e.base()
	if b.state != StatePersisted {
		return fmt.Errorf("delete %s (%s instance): %w", m.table, b.state, ErrNoPrimaryKey)
	}

	if err := m.db.triggerEvent(ctx, EventTypeBeforeDelete, e, nil); err != nil {
		return fmt.Errorf("BeforeDelete hook failed: %w", err)
	}

	query, err := sqlbuilder.BuildDeleteSQL(m.table, schema.PkName)
	if err != nil {
		return err
	}
	if _, err := m.db.Execute(ctx, query, b.ID); err != nil {
		return err
	}
	b.state = StateDeleted

	m.db.triggerAfter(ctx, EventTypeAfterDelete, e, nil)
	return nil
}

// attributes returns the id, every mapped field in declaration order and
// then the extras sorted by name. With writable set, extras loaded from the
// store and never reassigned are left out.
func (m *Model[T, PT]) attributes(v *T, writable bool) *Row {
	rv := reflect.ValueOf(v).Elem()
	row := NewRow()
	for _, fi := range m.info.Fields {
		row.Set(fi.Column, rv.FieldByIndex(fi.Index).Interface())
	}

	b := PT(v).base()
	extra := b.Extra
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if _, mapped := m.info.ColumnToField[k]; mapped {
			continue
		}
		if writable && !b.writableExtra(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		row.Set(k, extra[k])
	}
	return row
}
