package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// PkName is the primary key column every entity carries.
const PkName = "id"

// FieldInfo maps one exported struct field to its column.
type FieldInfo struct {
	GoName string
	Column string
	Index  []int // for reflect.Value.FieldByIndex
	// OmitEmpty is set by the ",omitempty" tag option: a zero value is left
	// out of INSERT so the column default applies.
	OmitEmpty bool
}

// ModelInfo holds pre-computed metadata about an entity type.
type ModelInfo struct {
	PkName        string
	Columns       []string    // all mapped columns in declaration order, PK included
	Fields        []FieldInfo // order matches Columns
	ColumnToField map[string]FieldInfo
}

// ModelCache stores ModelInfo structs, keyed by reflect.Type.
var ModelCache sync.Map // map[reflect.Type]*ModelInfo

// GetCachedModelInfo retrieves or computes the column mapping for a struct type.
// Exported fields carrying a db tag are mapped; embedded structs are walked
// recursively; db:"-" and untagged fields are skipped.
func GetCachedModelInfo(modelType reflect.Type) (*ModelInfo, error) {
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct type, got %s", modelType.Kind())
	}

	if cached, ok := ModelCache.Load(modelType); ok {
		return cached.(*ModelInfo), nil
	}

	info := ModelInfo{ColumnToField: make(map[string]FieldInfo)}

	var processFields func(structType reflect.Type, parentIndex []int)
	processFields = func(structType reflect.Type, parentIndex []int) {
		for i := 0; i < structType.NumField(); i++ {
			field := structType.Field(i)
			index := append(append([]int(nil), parentIndex...), i)

			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				processFields(field.Type, index)
				continue
			}

			tag := field.Tag.Get("db")
			column := ColumnName(tag)
			if column == "" || column == "-" || !field.IsExported() {
				continue
			}
			if _, dup := info.ColumnToField[column]; dup {
				continue // first declaration wins
			}
			fi := FieldInfo{GoName: field.Name, Column: column, Index: index, OmitEmpty: hasOption(tag, "omitempty")}
			info.Columns = append(info.Columns, column)
			info.Fields = append(info.Fields, fi)
			info.ColumnToField[column] = fi
			if column == PkName {
				info.PkName = column
			}
		}
	}
	processFields(modelType, nil)

	if info.PkName == "" {
		return nil, fmt.Errorf("primary key column %q not found via db tag in struct %s or its embedded BaseModel", PkName, modelType.Name())
	}

	actual, _ := ModelCache.LoadOrStore(modelType, &info)
	return actual.(*ModelInfo), nil
}

// ColumnName strips tag options such as ",omitempty" from a db tag.
func ColumnName(tag string) string {
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		tag = tag[:idx]
	}
	return strings.TrimSpace(tag)
}

func hasOption(tag, option string) bool {
	parts := strings.Split(tag, ",")
	for _, p := range parts[1:] {
		if strings.TrimSpace(p) == option {
			return true
		}
	}
	return false
}
