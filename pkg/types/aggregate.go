package types

// Aggregate is the composed read projection of a table: its columns and the
// first page of its rows in creation order. It is rebuilt after every
// mutation and is the unit a client caches.
type Aggregate struct {
	TableID    string   `json:"id"`
	BaseID     string   `json:"baseId"`
	Name       string   `json:"name"`
	Version    int64    `json:"version"`
	Columns    []Column `json:"columns"`
	Rows       []Row    `json:"rows"`
	TotalCount int      `json:"totalCount"`
}

// Clone returns a deep copy; mutating the copy never affects the original.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	out := *a
	if a.Columns != nil {
		out.Columns = make([]Column, len(a.Columns))
		copy(out.Columns, a.Columns)
	}
	if a.Rows != nil {
		out.Rows = make([]Row, len(a.Rows))
		for i, r := range a.Rows {
			out.Rows[i] = r.Clone()
		}
	}
	return &out
}

// Column returns the column with the given ID.
func (a *Aggregate) Column(columnID string) (Column, bool) {
	for _, c := range a.Columns {
		if c.ColumnID == columnID {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnIndex returns the display position of a column, or -1.
func (a *Aggregate) ColumnIndex(columnID string) int {
	for i, c := range a.Columns {
		if c.ColumnID == columnID {
			return i
		}
	}
	return -1
}

// RowPage is one page of rows plus pagination metadata.
type RowPage struct {
	Rows       []Row `json:"rows"`
	TotalCount int   `json:"totalCount"`
	HasMore    bool  `json:"hasMore"`
}

// TableSummary is a table with its columns and row count, as listed by
// GetBases.
type TableSummary struct {
	Table
	Columns  []Column `json:"columns"`
	RowCount int      `json:"rowCount"`
}

// BaseSummary is a base with its nested tables.
type BaseSummary struct {
	Base
	Tables []TableSummary `json:"tables"`
}

// ColumnAdded is the result of adding a column: the refreshed table and the
// new column.
type ColumnAdded struct {
	Table  *Aggregate `json:"table"`
	Column Column     `json:"column"`
}

// CellUpdate addresses one cell. RowIndex is the position of the row in
// creation order. When RowID is set it is the durable identity the caller
// believes sits at RowIndex; the update targets that row and fails with
// ErrConflict if the position no longer holds it.
type CellUpdate struct {
	TableID  string `json:"tableId"`
	RowIndex int    `json:"rowIndex"`
	RowID    string `json:"rowId,omitempty"`
	ColumnID string `json:"columnId"`
	Value    any    `json:"value"`
}

// CellPatch is the delta form of a cell update: the updated row and the
// table version after the write.
type CellPatch struct {
	TableID  string `json:"tableId"`
	RowIndex int    `json:"rowIndex"`
	Row      Row    `json:"row"`
	Version  int64  `json:"version"`
}
