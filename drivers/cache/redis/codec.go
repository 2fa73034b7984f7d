package redis

import (
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/burugo/record"
)

// encMode uses Core Deterministic Encoding with time.Time written as a
// tagged RFC 3339 string, so a cached row decodes back to the same Go types
// the driver produced: int64, float64, string, []byte, time.Time and nil.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TimeTag = cbor.EncTagRequired
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("redis: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSignedOrFail,
		TimeTagToAny:   cbor.TimeTagToTime,
	}.DecMode()
	if err != nil {
		panic("redis: CBOR decoder initialization failed: " + err.Error())
	}
}

type wireRow struct {
	Columns []string `cbor:"1,keyasint"`
	Values  []any    `cbor:"2,keyasint"`
}

type wireEntry struct {
	InsertedAt int64     `cbor:"1,keyasint"` // unix nanoseconds
	Rows       []wireRow `cbor:"2,keyasint"`
}

func encodeEntry(insertedAt time.Time, rows []*record.Row) ([]byte, error) {
	e := wireEntry{InsertedAt: insertedAt.UnixNano(), Rows: make([]wireRow, len(rows))}
	for i, r := range rows {
		cols := r.Keys()
		vals := make([]any, len(cols))
		for j, c := range cols {
			vals[j], _ = r.Get(c)
		}
		e.Rows[i] = wireRow{Columns: cols, Values: vals}
	}
	b, err := encMode.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return b, nil
}

func decodeEntry(data []byte) (time.Time, []*record.Row, error) {
	var e wireEntry
	if err := decMode.Unmarshal(data, &e); err != nil {
		return time.Time{}, nil, fmt.Errorf("decode cache entry: %w", err)
	}
	rows := make([]*record.Row, len(e.Rows))
	for i, wr := range e.Rows {
		if len(wr.Columns) != len(wr.Values) {
			return time.Time{}, nil, fmt.Errorf("decode cache entry: row %d has %d columns and %d values", i, len(wr.Columns), len(wr.Values))
		}
		r := record.NewRow()
		for j, c := range wr.Columns {
			r.Set(c, wr.Values[j])
		}
		rows[i] = r
	}
	return time.Unix(0, e.InsertedAt), rows, nil
}
