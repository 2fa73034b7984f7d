package record

import (
	"encoding/json"
	"fmt"
)

// Row is a field name to value mapping that preserves column order and
// serializes to JSON in that order.
type Row struct {
	keys   []string
	values map[string]interface{}
}

// NewRow creates a new empty Row.
func NewRow() *Row {
	return &Row{
		keys:   make([]string, 0),
		values: make(map[string]interface{}),
	}
}

// Set sets the value for a key, preserving insertion order.
func (r *Row) Set(key string, value interface{}) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get retrieves the value for a key.
func (r *Row) Get(key string) (interface{}, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Row) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields.
func (r *Row) Len() int { return len(r.keys) }

// Map returns an unordered copy of the fields.
func (r *Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Clone returns a shallow copy of the row.
func (r *Row) Clone() *Row {
	c := &Row{
		keys:   append([]string(nil), r.keys...),
		values: make(map[string]interface{}, len(r.values)),
	}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// MarshalJSON implements json.Marshaler, outputting keys in order.
func (r *Row) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range r.keys {
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key: %w", err)
		}
		valBytes, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		buf = append(buf, valBytes...)
		if i < len(r.keys)-1 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

func cloneRows(rows []*Row) []*Row {
	out := make([]*Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
