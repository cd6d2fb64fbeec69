package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// ErrAlreadyAttached is returned by Attach on an attached backend.
var ErrAlreadyAttached = errors.New("backend is already attached")

type baseRecord struct {
	bun.BaseModel `bun:"table:bases,alias:b"`

	Seq        int64     `bun:"seq,pk,autoincrement"`
	BaseID     string    `bun:"base_id,notnull"`
	UserID     string    `bun:"user_id,notnull"`
	Name       string    `bun:"name,notnull"`
	DefaultFor *string   `bun:"default_for"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (r *baseRecord) entity() types.Base {
	return types.Base{
		BaseID:    r.BaseID,
		UserID:    r.UserID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
	}
}

type tableRecord struct {
	bun.BaseModel `bun:"table:grid_tables,alias:t"`

	Seq       int64     `bun:"seq,pk,autoincrement"`
	TableID   string    `bun:"table_id,notnull"`
	BaseID    string    `bun:"base_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Version   int64     `bun:"version,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r *tableRecord) entity() types.Table {
	return types.Table{
		TableID:   r.TableID,
		BaseID:    r.BaseID,
		Name:      r.Name,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
	}
}

type columnRecord struct {
	bun.BaseModel `bun:"table:grid_columns,alias:c"`

	Seq       int64     `bun:"seq,pk,autoincrement"`
	ColumnID  string    `bun:"column_id,notnull"`
	TableID   string    `bun:"table_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Type      string    `bun:"type,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r *columnRecord) entity() types.Column {
	return types.Column{
		ColumnID:  r.ColumnID,
		TableID:   r.TableID,
		Name:      r.Name,
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
	}
}

type rowRecord struct {
	bun.BaseModel `bun:"table:grid_rows,alias:r"`

	Seq       int64         `bun:"seq,pk,autoincrement"`
	RowID     string        `bun:"row_id,notnull"`
	TableID   string        `bun:"table_id,notnull"`
	Data      types.RowData `bun:"data,notnull"`
	CreatedAt time.Time     `bun:"created_at,notnull"`
}

func (r *rowRecord) entity() types.Row {
	data := r.Data
	if data == nil {
		data = types.RowData{}
	}
	return types.Row{
		RowID:     r.RowID,
		TableID:   r.TableID,
		CreatedAt: r.CreatedAt,
		Data:      data,
	}
}

// notFound maps sql.ErrNoRows to types.ErrNotFound and wraps everything else
// with the operation context.
func notFound(err error, context string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	return storageErr(err, context)
}

// storageErr marks a driver failure as a storage fault. Sentinel errors
// raised inside a transaction pass through unchanged.
func storageErr(err error, context string) error {
	var se *StorageError
	if errors.As(err, &se) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrConflict) ||
		errors.Is(err, types.ErrValidation) {
		return err
	}
	return &StorageError{Op: context, Err: err}
}

// StorageError wraps a persistence failure. errors.Is matches both
// types.ErrStorage and the underlying driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{types.ErrStorage, e.Err}
}
