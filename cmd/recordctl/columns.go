package main

import (
	"fmt"
	"strings"

	"github.com/burugo/record"
)

// parseColumn parses name:TYPE[:opts] into a column descriptor.
func parseColumn(spec string) (record.Column, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return record.Column{}, fmt.Errorf("invalid column spec %q: want name:TYPE[:opts]", spec)
	}
	col := record.NewColumn(parts[0], parts[1])
	if len(parts) < 3 || parts[2] == "" {
		return col, nil
	}

	for _, opt := range strings.Split(parts[2], ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch strings.ToLower(key) {
		case "pk":
			col = col.PK()
		case "notnull":
			col = col.NotNull()
		case "unique":
			col = col.Uniq()
		case "index":
			col = col.Indexed()
		case "default":
			col = col.WithDefault(value)
		case "ref":
			table, column, ok := strings.Cut(value, ".")
			if !ok || table == "" || column == "" {
				return record.Column{}, fmt.Errorf("invalid ref %q in column spec %q: want TABLE.COLUMN", value, spec)
			}
			col = col.References(table, column)
		default:
			return record.Column{}, fmt.Errorf("unknown option %q in column spec %q", key, spec)
		}
	}
	return col, nil
}
