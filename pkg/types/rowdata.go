package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

// RowData maps column IDs to cell values. A value is a string, a float64,
// or nil. A key that is absent and a key that is present with a nil value
// are different states: the first means the column was never written for
// this row, the second means the cell was explicitly cleared or back-filled.
type RowData map[string]any

// Lookup returns the value for columnID and whether the key is present.
func (d RowData) Lookup(columnID string) (any, bool) {
	v, ok := d[columnID]
	return v, ok
}

// Has reports whether the key is present, including present-null keys.
func (d RowData) Has(columnID string) bool {
	_, ok := d[columnID]
	return ok
}

// Set writes a normalized value. Returns ErrInvalidValue for unsupported
// value kinds; the map is left unchanged in that case.
func (d RowData) Set(columnID string, value any) error {
	v, err := NormalizeValue(value)
	if err != nil {
		return err
	}
	d[columnID] = v
	return nil
}

// Clone returns a copy of the map. Values are scalars, so a shallow copy of
// the entries is a deep copy of the data.
func (d RowData) Clone() RowData {
	if d == nil {
		return nil
	}
	out := make(RowData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer; row data is stored as a JSON document.
func (d RowData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("encoding row data: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *RowData) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = RowData{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scanning row data: unsupported source type %T", src)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decoding row data: %w", err)
	}
	*d = RowData(m)
	return nil
}

// NormalizeValue converts a cell value to its canonical form: nil, string,
// or float64. Integer kinds and json.Number become float64. NaN and
// infinities are rejected because they have no JSON encoding.
func NormalizeValue(value any) (any, error) {
	var f float64
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite number", ErrInvalidValue)
	}
	return f, nil
}
