package record

import (
	"encoding/json"
	"errors"
	"slices"
)

// JSONOptions controls which attributes ToJSON emits.
type JSONOptions struct {
	Include []string // when non-empty, only these attributes in this order
	Exclude []string
}

// JSONOption defines the function signature for JSON serialization options.
type JSONOption func(*JSONOptions)

// Include restricts the output to fields, emitted in the given order.
func Include(fields ...string) JSONOption {
	return func(opts *JSONOptions) {
		for _, field := range fields {
			if !slices.Contains(opts.Include, field) {
				opts.Include = append(opts.Include, field)
			}
		}
	}
}

// Exclude drops fields from the output.
func Exclude(fields ...string) JSONOption {
	return func(opts *JSONOptions) {
		for _, field := range fields {
			if !slices.Contains(opts.Exclude, field) {
				opts.Exclude = append(opts.Exclude, field)
			}
		}
	}
}

// ToMapping returns v's attributes: id, mapped fields, then extras.
func (m *Model[T, PT]) ToMapping(v *T) *Row {
	return m.attributes(v, false)
}

// ToJSON serializes v's attributes as a JSON object in attribute order.
func (m *Model[T, PT]) ToJSON(v *T, opts ...JSONOption) ([]byte, error) {
	if v == nil {
		return nil, errors.New("cannot serialize nil model")
	}
	options := &JSONOptions{}
	for _, opt := range opts {
		opt(options)
	}

	attrs := m.attributes(v, false)
	out := NewRow()
	keys := attrs.Keys()
	if len(options.Include) > 0 {
		keys = options.Include
	}
	for _, k := range keys {
		if slices.Contains(options.Exclude, k) {
			continue
		}
		if val, ok := attrs.Get(k); ok {
			out.Set(k, val)
		}
	}
	return json.Marshal(out)
}
