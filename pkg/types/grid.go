package types

import "time"

// Column value types. Only number and text change behavior (synthesis and
// client-side coercion); any other non-empty type is stored as given and
// treated as text.
const (
	ColumnTypeText   = "text"
	ColumnTypeNumber = "number"
)

// Base is a top-level container owned by exactly one user.
type Base struct {
	BaseID    string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Table belongs to one Base. Version increases by one with every row or
// column mutation and is used to stamp cache entries.
type Table struct {
	TableID   string    `json:"id"`
	BaseID    string    `json:"baseId"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// Column describes one field of a table. Type is advisory metadata for
// rendering and coercion; the store never validates row values against it.
type Column struct {
	ColumnID  string    `json:"id"`
	TableID   string    `json:"tableId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsNumeric reports whether values of this column are numbers.
func (c Column) IsNumeric() bool {
	return c.Type == ColumnTypeNumber
}

// Row is one record of a table. Data is keyed by Column.ColumnID so that
// renaming a column never rewrites row data.
type Row struct {
	RowID     string    `json:"id"`
	TableID   string    `json:"tableId"`
	CreatedAt time.Time `json:"createdAt"`
	Data      RowData   `json:"data"`
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	r.Data = r.Data.Clone()
	return r
}
