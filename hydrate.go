package record

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/burugo/record/internal/schema"
)

// timeLayouts are tried in order when a text column is decoded into time.Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func stringToTimeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		s := data.(string)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as time", s)
	}
}

// hydrate builds an entity from row. Columns without a matching field are
// kept in Extra. The instance is persisted only when the row carries an id.
func (m *Model[T, PT]) hydrate(row *Row) (*T, error) {
	inst := new(T)
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		Squash:           true,
		WeaklyTypedInput: true,
		Metadata:         &md,
		DecodeHook:       stringToTimeHook(),
		Result:           inst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for %s: %w", m.table, err)
	}
	if err := dec.Decode(row.Map()); err != nil {
		return nil, fmt.Errorf("failed to hydrate %s row: %w", m.table, err)
	}

	b := PT(inst).base()
	for _, col := range md.Unused {
		v, _ := row.Get(col)
		b.loadExtra(col, v)
	}
	if v, ok := row.Get(schema.PkName); ok && v != nil {
		b.state = StatePersisted
	}
	return inst, nil
}
