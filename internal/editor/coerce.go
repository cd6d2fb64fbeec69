package editor

import (
	"math"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// Coerce turns an input buffer into the value sent for a column. An empty
// buffer clears the cell with an explicit null. Number columns parse the
// trimmed buffer as a float, and a buffer of only spaces clears them too;
// every other type keeps the text as typed, spaces included.
func Coerce(col types.Column, buffer string) (any, error) {
	if buffer == "" {
		return nil, nil
	}
	if !col.IsNumeric() {
		return buffer, nil
	}
	trimmed := strings.TrimSpace(buffer)
	if trimmed == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrInvalidNumber
	}
	return f, nil
}

// Format renders a cell value as editable text.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		n, err := types.NormalizeValue(v)
		if f, ok := n.(float64); err == nil && ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}
