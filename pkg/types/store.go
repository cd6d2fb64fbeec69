package types

import (
	"context"
	"errors"
	"fmt"
)

// Store is the persistence boundary for grids. Implementations guarantee
// that each method is atomic: a failed call leaves no partial writes.
type Store interface {
	// CreateBase persists a new base owned by userID.
	CreateBase(ctx context.Context, userID, name string) (*Base, error)

	// ListBases returns the user's bases, newest first.
	ListBases(ctx context.Context, userID string) ([]Base, error)

	// GetBase returns ErrNotFound if no base has the given ID.
	GetBase(ctx context.Context, baseID string) (*Base, error)

	// FirstTableForUser returns the earliest table of the user's earliest
	// base that has one, or ErrNotFound.
	FirstTableForUser(ctx context.Context, userID string) (*Table, error)

	// CreateDefaultTable creates the user's default base, its table, the
	// given columns, and the seed rows in one transaction. At most one
	// default base exists per user; if another caller won the race the
	// existing default table is returned with created=false.
	CreateDefaultTable(ctx context.Context, userID string, spec TableSeed) (table *Table, created bool, err error)

	// CreateTable creates a table in an existing base with its seed columns
	// and rows in one transaction.
	CreateTable(ctx context.Context, baseID string, spec TableSeed) (*Table, error)

	// ListTables returns the tables of a base in creation order.
	ListTables(ctx context.Context, baseID string) ([]Table, error)

	// GetTable returns ErrNotFound if no table has the given ID.
	GetTable(ctx context.Context, tableID string) (*Table, error)

	// ListColumns returns the columns of a table in creation order.
	ListColumns(ctx context.Context, tableID string) ([]Column, error)

	// AddColumn creates a column and back-fills every existing row of the
	// table with a null value for it before returning.
	AddColumn(ctx context.Context, tableID, name, columnType string) (*Column, error)

	// CreateRow persists one row.
	CreateRow(ctx context.Context, tableID string, data RowData) (*Row, error)

	// CreateRowsBatch persists all rows in one call and one transaction,
	// preserving slice order as creation order. Returns the number inserted.
	CreateRowsBatch(ctx context.Context, tableID string, rows []RowData) (int, error)

	// ListRows returns rows in creation order starting at offset.
	ListRows(ctx context.Context, tableID string, offset, limit int) (*RowPage, error)

	// CountRows returns the number of rows in the table.
	CountRows(ctx context.Context, tableID string) (int, error)

	// UpdateRowDataByIndex sets one cell of the row at position rowIndex in
	// creation order. Returns ErrNotFound if rowIndex is out of range.
	UpdateRowDataByIndex(ctx context.Context, tableID string, rowIndex int, columnID string, value any) (*Row, int64, error)

	// UpdateRowDataByID sets one cell of the row with the given ID. Returns
	// ErrNotFound if the row is not in the table.
	UpdateRowDataByID(ctx context.Context, tableID, rowID, columnID string, value any) (*Row, int64, error)

	// RowIDAt returns the ID of the row at position rowIndex, or ErrNotFound.
	RowIDAt(ctx context.Context, tableID string, rowIndex int) (string, error)

	// Close releases backend resources.
	Close() error
}

// TableSeed describes a table to create with its initial columns and rows.
// Rows are built by the Rows callback once the column IDs are known.
type TableSeed struct {
	BaseName  string
	TableName string
	Columns   []ColumnSeed
	Rows      func(columns []Column) []RowData
}

// ColumnSeed is a column to create with a new table.
type ColumnSeed struct {
	Name string
	Type string
}

// Lookup and state errors.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("row position no longer matches row id")
	ErrStorage      = errors.New("storage failure")
	ErrClosed       = errors.New("store is closed")
)

// ErrValidation is wrapped by every input validation error so callers can
// classify them with errors.Is.
var ErrValidation = errors.New("validation error")

// Input validation errors.
var (
	ErrInvalidID         = fmt.Errorf("%w: invalid entity ID", ErrValidation)
	ErrInvalidName       = fmt.Errorf("%w: name must not be empty", ErrValidation)
	ErrInvalidColumnType = fmt.Errorf("%w: column type must not be empty", ErrValidation)
	ErrInvalidCount      = fmt.Errorf("%w: count out of range", ErrValidation)
	ErrInvalidLimit      = fmt.Errorf("%w: limit out of range", ErrValidation)
	ErrInvalidPage       = fmt.Errorf("%w: page must not be negative", ErrValidation)
	ErrInvalidRowIndex   = fmt.Errorf("%w: row index must not be negative", ErrValidation)
	ErrInvalidValue      = fmt.Errorf("%w: invalid cell value", ErrValidation)
)
