package sqlite

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// ListColumns returns the columns of a table in creation order. Returns
// ErrNotFound if the table does not exist.
func (b *Backend) ListColumns(ctx context.Context, tableID string) ([]types.Column, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if err := tableExists(ctx, db, tableID); err != nil {
		return nil, err
	}
	return listColumns(ctx, db, tableID)
}

func listColumns(ctx context.Context, db bun.IDB, tableID string) ([]types.Column, error) {
	var recs []columnRecord
	err := db.NewSelect().
		Model(&recs).
		Where("c.table_id = ?", tableID).
		OrderExpr("c.seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageErr(err, "listing columns")
	}

	columns := make([]types.Column, 0, len(recs))
	for i := range recs {
		columns = append(columns, recs[i].entity())
	}
	return columns, nil
}

// AddColumn creates a column and back-fills every existing row of the table
// with a null value for it. The insert and the back-fill share one
// transaction, so readers never observe the column without the back-fill.
// The back-fill is one set-based UPDATE regardless of row count.
func (b *Backend) AddColumn(ctx context.Context, tableID, name, columnType string) (*types.Column, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	if name == "" {
		return nil, types.ErrInvalidName
	}
	if columnType == "" {
		return nil, types.ErrInvalidColumnType
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rec := &columnRecord{
		ColumnID:  newUUID(),
		TableID:   tableID,
		Name:      name,
		Type:      columnType,
		CreatedAt: now(),
	}
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := bumpVersion(ctx, tx, tableID); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(rec).Returning("NULL").Exec(ctx); err != nil {
			return storageErr(err, "inserting column")
		}
		return backfillNull(ctx, tx, tableID, rec.ColumnID)
	})
	if err != nil {
		return nil, storageErr(err, "adding column")
	}

	col := rec.entity()
	return &col, nil
}

// backfillNull adds {columnID: null} to the data of every row in the table.
// Keys already present keep their value.
func backfillNull(ctx context.Context, tx bun.Tx, tableID, columnID string) error {
	var set string
	if isPostgres(tx) {
		set = "data = (jsonb_build_object(?::text, NULL::jsonb) || data::jsonb)::text"
	} else {
		set = `data = json_insert(data, '$."' || ? || '"', NULL)`
	}
	_, err := tx.NewUpdate().
		Model((*rowRecord)(nil)).
		Set(set, columnID).
		Where("table_id = ?", tableID).
		Exec(ctx)
	if err != nil {
		return storageErr(err, "back-filling rows")
	}
	return nil
}
