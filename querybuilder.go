package record

import (
	"fmt"
	"strings"
)

type predicate struct {
	fragment string
	values   []interface{}
}

// QueryBuilder assembles a parametrized SELECT statement from fluent calls.
// Bound values are returned in the same left-to-right order as the "?"
// placeholders of the Where fragments that produced them.
type QueryBuilder struct {
	table     string
	fields    []string
	wheres    []predicate
	joins     []string
	orderBy   string
	limit     int
	hasLimit  bool
	offset    int
	hasOffset bool
}

// NewQueryBuilder returns a builder selecting every column of table.
func NewQueryBuilder(table string) *QueryBuilder {
	return &QueryBuilder{table: table, fields: []string{"*"}}
}

// Table returns the table the builder selects from.
func (qb *QueryBuilder) Table() string { return qb.table }

// Select replaces the default "*" projection.
func (qb *QueryBuilder) Select(fields ...string) *QueryBuilder {
	if len(fields) > 0 {
		qb.fields = append([]string(nil), fields...)
	}
	return qb
}

// Where appends a predicate fragment, AND-joined with the others.
func (qb *QueryBuilder) Where(fragment string, values ...interface{}) *QueryBuilder {
	qb.wheres = append(qb.wheres, predicate{fragment: fragment, values: values})
	return qb
}

// Join appends an inner join clause.
func (qb *QueryBuilder) Join(table, on string) *QueryBuilder {
	qb.joins = append(qb.joins, fmt.Sprintf("JOIN %s ON %s", table, on))
	return qb
}

// LeftJoin appends a left join clause.
func (qb *QueryBuilder) LeftJoin(table, on string) *QueryBuilder {
	qb.joins = append(qb.joins, fmt.Sprintf("LEFT JOIN %s ON %s", table, on))
	return qb
}

// OrderBy sets the ORDER BY clause, replacing any earlier one.
// An empty direction means ASC.
func (qb *QueryBuilder) OrderBy(field, direction string) *QueryBuilder {
	if direction == "" {
		direction = "ASC"
	}
	qb.orderBy = fmt.Sprintf("%s %s", field, strings.ToUpper(direction))
	return qb
}

// Limit sets the LIMIT clause. Zero is emitted as LIMIT 0.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	qb.limit, qb.hasLimit = n, true
	return qb
}

// Offset sets the OFFSET clause. Zero is emitted as OFFSET 0.
func (qb *QueryBuilder) Offset(n int) *QueryBuilder {
	qb.offset, qb.hasOffset = n, true
	return qb
}

// Clone returns an independent copy of the builder.
func (qb *QueryBuilder) Clone() *QueryBuilder {
	c := *qb
	c.fields = append([]string(nil), qb.fields...)
	c.joins = append([]string(nil), qb.joins...)
	c.wheres = make([]predicate, len(qb.wheres))
	for i, w := range qb.wheres {
		c.wheres[i] = predicate{fragment: w.fragment, values: append([]interface{}(nil), w.values...)}
	}
	return &c
}

// Build returns the SQL text and its bound values.
func (qb *QueryBuilder) Build() (string, []interface{}) {
	var query strings.Builder
	args := []interface{}{}

	fmt.Fprintf(&query, "SELECT %s FROM %s", strings.Join(qb.fields, ", "), qb.table)

	if len(qb.joins) > 0 {
		query.WriteString(" ")
		query.WriteString(strings.Join(qb.joins, " "))
	}

	if len(qb.wheres) > 0 {
		fragments := make([]string, len(qb.wheres))
		for i, w := range qb.wheres {
			fragments[i] = w.fragment
			args = append(args, w.values...)
		}
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(fragments, " AND "))
	}

	if qb.orderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(qb.orderBy)
	}
	if qb.hasLimit {
		fmt.Fprintf(&query, " LIMIT %d", qb.limit)
	}
	if qb.hasOffset {
		fmt.Fprintf(&query, " OFFSET %d", qb.offset)
	}
	return query.String(), args
}
