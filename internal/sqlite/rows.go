package sqlite

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// CreateRow persists one row. CreatedAt and the creation sequence are
// assigned by the store. Columns the data does not mention are stored as
// null.
func (b *Backend) CreateRow(ctx context.Context, tableID string, data types.RowData) (*types.Row, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rec := &rowRecord{
		RowID:     newUUID(),
		TableID:   tableID,
		CreatedAt: now(),
	}
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := bumpVersion(ctx, tx, tableID); err != nil {
			return err
		}
		filled, err := fillColumns(ctx, tx, tableID, []types.RowData{data})
		if err != nil {
			return err
		}
		rec.Data = filled[0]
		if _, err := tx.NewInsert().Model(rec).Returning("NULL").Exec(ctx); err != nil {
			return storageErr(err, "inserting row")
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "creating row")
	}

	row := rec.entity()
	return &row, nil
}

// CreateRowsBatch persists rows in one transaction using multi-row INSERTs
// of at most batchSize rows each. Slice order becomes creation order.
// Columns a row does not mention are stored as null.
func (b *Backend) CreateRowsBatch(ctx context.Context, tableID string, rows []types.RowData) (int, error) {
	if tableID == "" {
		return 0, types.ErrInvalidID
	}
	if len(rows) == 0 {
		return 0, nil
	}
	db, err := b.conn()
	if err != nil {
		return 0, err
	}

	var inserted int
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := bumpVersion(ctx, tx, tableID); err != nil {
			return err
		}
		filled, err := fillColumns(ctx, tx, tableID, rows)
		if err != nil {
			return err
		}
		n, err := b.insertRows(ctx, tx, tableID, filled)
		inserted = n
		return err
	})
	if err != nil {
		return 0, storageErr(err, "creating row batch")
	}
	return inserted, nil
}

// fillColumns returns rows with a null for every column of the table that a
// row lacks. It reads the columns after bumpVersion has claimed the table
// row, so an AddColumn either committed before and is listed here, or
// commits after and back-fills these rows. Rows already complete are
// returned as is; the others are copied.
func fillColumns(ctx context.Context, tx bun.Tx, tableID string, rows []types.RowData) ([]types.RowData, error) {
	cols, err := listColumns(ctx, tx, tableID)
	if err != nil {
		return nil, err
	}
	out := make([]types.RowData, len(rows))
	for i, data := range rows {
		if data == nil {
			data = types.RowData{}
		}
		var filled types.RowData
		for _, col := range cols {
			if _, ok := data[col.ColumnID]; ok {
				continue
			}
			if filled == nil {
				filled = data.Clone()
			}
			filled[col.ColumnID] = nil
		}
		if filled != nil {
			data = filled
		}
		out[i] = data
	}
	return out, nil
}

// insertRows writes rows in chunks inside the caller's transaction.
func (b *Backend) insertRows(ctx context.Context, tx bun.Tx, tableID string, rows []types.RowData) (int, error) {
	chunkSize := b.batchSize
	if chunkSize <= 0 {
		chunkSize = types.DefaultBatchSize
	}
	created := now()

	chunk := make([]rowRecord, 0, min(chunkSize, len(rows)))
	inserted := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		chunk = chunk[:0]
		for _, data := range rows[start:end] {
			if data == nil {
				data = types.RowData{}
			}
			chunk = append(chunk, rowRecord{
				RowID:     newUUID(),
				TableID:   tableID,
				Data:      data,
				CreatedAt: created,
			})
		}
		if _, err := tx.NewInsert().Model(&chunk).Returning("NULL").Exec(ctx); err != nil {
			return inserted, storageErr(err, "inserting row batch")
		}
		inserted += len(chunk)
	}
	return inserted, nil
}

// ListRows returns a page of rows in creation order. HasMore is true when
// offset+limit is below the total count.
func (b *Backend) ListRows(ctx context.Context, tableID string, offset, limit int) (*types.RowPage, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	if offset < 0 {
		return nil, types.ErrInvalidPage
	}
	if limit < types.MinPageLimit {
		return nil, types.ErrInvalidLimit
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var recs []rowRecord
	total, err := db.NewSelect().
		Model(&recs).
		Where("r.table_id = ?", tableID).
		OrderExpr("r.seq ASC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, storageErr(err, "listing rows")
	}

	page := &types.RowPage{
		Rows:       make([]types.Row, 0, len(recs)),
		TotalCount: total,
		HasMore:    offset+limit < total,
	}
	for i := range recs {
		page.Rows = append(page.Rows, recs[i].entity())
	}
	return page, nil
}

// CountRows returns the number of rows in the table.
func (b *Backend) CountRows(ctx context.Context, tableID string) (int, error) {
	db, err := b.conn()
	if err != nil {
		return 0, err
	}
	n, err := db.NewSelect().Model((*rowRecord)(nil)).Where("r.table_id = ?", tableID).Count(ctx)
	if err != nil {
		return 0, storageErr(err, "counting rows")
	}
	return n, nil
}

// RowIDAt returns the ID of the row at position rowIndex in creation order.
func (b *Backend) RowIDAt(ctx context.Context, tableID string, rowIndex int) (string, error) {
	if rowIndex < 0 {
		return "", types.ErrInvalidRowIndex
	}
	db, err := b.conn()
	if err != nil {
		return "", err
	}
	rec, err := rowAt(ctx, db, tableID, rowIndex)
	if err != nil {
		return "", err
	}
	return rec.RowID, nil
}

// UpdateRowDataByIndex sets one cell of the row at position rowIndex,
// located with a skip/take of one row. Position is not a stable identity:
// a concurrent insert ahead of the index moves the write to another row.
func (b *Backend) UpdateRowDataByIndex(ctx context.Context, tableID string, rowIndex int, columnID string, value any) (*types.Row, int64, error) {
	if tableID == "" || columnID == "" {
		return nil, 0, types.ErrInvalidID
	}
	if rowIndex < 0 {
		return nil, 0, types.ErrInvalidRowIndex
	}
	return b.updateCell(ctx, tableID, columnID, value, func(ctx context.Context, tx bun.Tx) (*rowRecord, error) {
		return rowAt(ctx, tx, tableID, rowIndex)
	})
}

// UpdateRowDataByID sets one cell of the row with the given ID.
func (b *Backend) UpdateRowDataByID(ctx context.Context, tableID, rowID, columnID string, value any) (*types.Row, int64, error) {
	if tableID == "" || rowID == "" || columnID == "" {
		return nil, 0, types.ErrInvalidID
	}
	return b.updateCell(ctx, tableID, columnID, value, func(ctx context.Context, tx bun.Tx) (*rowRecord, error) {
		rec := new(rowRecord)
		err := tx.NewSelect().
			Model(rec).
			Where("r.table_id = ?", tableID).
			Where("r.row_id = ?", rowID).
			Scan(ctx)
		if err != nil {
			return nil, notFound(err, "getting row")
		}
		return rec, nil
	})
}

// updateCell reads the row chosen by locate, rewrites its data with the new
// cell value, and bumps the table version, all in one transaction.
func (b *Backend) updateCell(ctx context.Context, tableID, columnID string, value any, locate func(context.Context, bun.Tx) (*rowRecord, error)) (*types.Row, int64, error) {
	normalized, err := types.NormalizeValue(value)
	if err != nil {
		return nil, 0, err
	}
	db, err := b.conn()
	if err != nil {
		return nil, 0, err
	}

	var (
		rec     *rowRecord
		version int64
	)
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tableExists(ctx, tx, tableID); err != nil {
			return err
		}
		var err error
		rec, err = locate(ctx, tx)
		if err != nil {
			return err
		}
		data := rec.Data.Clone()
		if data == nil {
			data = types.RowData{}
		}
		data[columnID] = normalized
		rec.Data = data

		if _, err := tx.NewUpdate().Model(rec).Column("data").WherePK().Exec(ctx); err != nil {
			return storageErr(err, "updating row data")
		}
		version, err = bumpVersion(ctx, tx, tableID)
		return err
	})
	if err != nil {
		return nil, 0, storageErr(err, "updating cell")
	}

	row := rec.entity()
	return &row, version, nil
}

// rowAt fetches the row at a creation-order position.
func rowAt(ctx context.Context, db bun.IDB, tableID string, rowIndex int) (*rowRecord, error) {
	rec := new(rowRecord)
	err := db.NewSelect().
		Model(rec).
		Where("r.table_id = ?", tableID).
		OrderExpr("r.seq ASC").
		Offset(rowIndex).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "getting row by index")
	}
	return rec, nil
}
