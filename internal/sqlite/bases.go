package sqlite

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// CreateBase persists a new base owned by userID.
func (b *Backend) CreateBase(ctx context.Context, userID, name string) (*types.Base, error) {
	if userID == "" {
		return nil, types.ErrInvalidID
	}
	if name == "" {
		return nil, types.ErrInvalidName
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rec := &baseRecord{
		BaseID:    newUUID(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now(),
	}
	if _, err := db.NewInsert().Model(rec).Returning("NULL").Exec(ctx); err != nil {
		return nil, storageErr(err, "inserting base")
	}
	base := rec.entity()
	return &base, nil
}

// ListBases returns the user's bases, newest first.
func (b *Backend) ListBases(ctx context.Context, userID string) ([]types.Base, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var recs []baseRecord
	err = db.NewSelect().
		Model(&recs).
		Where("b.user_id = ?", userID).
		OrderExpr("b.seq DESC").
		Scan(ctx)
	if err != nil {
		return nil, storageErr(err, "listing bases")
	}

	bases := make([]types.Base, 0, len(recs))
	for i := range recs {
		bases = append(bases, recs[i].entity())
	}
	return bases, nil
}

// GetBase retrieves a base by ID.
func (b *Backend) GetBase(ctx context.Context, baseID string) (*types.Base, error) {
	if baseID == "" {
		return nil, types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rec := new(baseRecord)
	if err := db.NewSelect().Model(rec).Where("b.base_id = ?", baseID).Scan(ctx); err != nil {
		return nil, notFound(err, "getting base")
	}
	base := rec.entity()
	return &base, nil
}

// FirstTableForUser returns the user's default table if a default base
// exists, otherwise the earliest table of the user's earliest base.
func (b *Backend) FirstTableForUser(ctx context.Context, userID string) (*types.Table, error) {
	if userID == "" {
		return nil, types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	return firstTableForUser(ctx, db, userID)
}

func firstTableForUser(ctx context.Context, db bun.IDB, userID string) (*types.Table, error) {
	rec := new(tableRecord)
	err := db.NewSelect().
		Model(rec).
		Join("JOIN bases AS b ON b.base_id = t.base_id").
		Where("b.user_id = ?", userID).
		OrderExpr("b.default_for IS NULL ASC, b.seq ASC, t.seq ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "finding first table")
	}
	table := rec.entity()
	return &table, nil
}

// CreateDefaultTable creates the user's default base with one seeded table.
// The UNIQUE default_for key admits one default base per user: a caller
// that loses the race gets the winner's table back with created=false.
func (b *Backend) CreateDefaultTable(ctx context.Context, userID string, spec types.TableSeed) (*types.Table, bool, error) {
	if userID == "" {
		return nil, false, types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return nil, false, err
	}

	var (
		table   *types.Table
		created bool
	)
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := defaultTable(ctx, tx, userID)
		if err == nil {
			table = existing
			return nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}

		owner := userID
		base := &baseRecord{
			BaseID:     newUUID(),
			UserID:     userID,
			Name:       spec.BaseName,
			DefaultFor: &owner,
			CreatedAt:  now(),
		}
		if _, err := tx.NewInsert().Model(base).Returning("NULL").Exec(ctx); err != nil {
			return storageErr(err, "inserting default base")
		}

		t, err := b.insertSeededTable(ctx, tx, base.BaseID, spec)
		if err != nil {
			return err
		}
		table, created = t, true
		return nil
	})
	if err == nil {
		return table, created, nil
	}

	// Another connection may have committed the default base between our
	// read and our insert; the unique key rejected ours, so read theirs.
	if existing, lookupErr := defaultTable(ctx, db, userID); lookupErr == nil {
		return existing, false, nil
	}
	return nil, false, storageErr(err, "creating default table")
}

// defaultTable returns the first table of the user's default base.
func defaultTable(ctx context.Context, db bun.IDB, userID string) (*types.Table, error) {
	rec := new(tableRecord)
	err := db.NewSelect().
		Model(rec).
		Join("JOIN bases AS b ON b.base_id = t.base_id").
		Where("b.default_for = ?", userID).
		OrderExpr("t.seq ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "finding default table")
	}
	table := rec.entity()
	return &table, nil
}

// CreateTable creates a seeded table inside an existing base.
func (b *Backend) CreateTable(ctx context.Context, baseID string, spec types.TableSeed) (*types.Table, error) {
	if baseID == "" {
		return nil, types.ErrInvalidID
	}
	if spec.TableName == "" {
		return nil, types.ErrInvalidName
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var table *types.Table
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*baseRecord)(nil)).Where("b.base_id = ?", baseID).Exists(ctx)
		if err != nil {
			return storageErr(err, "checking base")
		}
		if !exists {
			return types.ErrNotFound
		}
		table, err = b.insertSeededTable(ctx, tx, baseID, spec)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "creating table")
	}
	return table, nil
}

// insertSeededTable writes a table, its seed columns, and its seed rows
// using the caller's transaction.
func (b *Backend) insertSeededTable(ctx context.Context, tx bun.Tx, baseID string, spec types.TableSeed) (*types.Table, error) {
	created := now()
	trec := &tableRecord{
		TableID:   newUUID(),
		BaseID:    baseID,
		Name:      spec.TableName,
		CreatedAt: created,
	}
	if _, err := tx.NewInsert().Model(trec).Returning("NULL").Exec(ctx); err != nil {
		return nil, storageErr(err, "inserting table")
	}

	columns := make([]types.Column, 0, len(spec.Columns))
	if len(spec.Columns) > 0 {
		crecs := make([]columnRecord, 0, len(spec.Columns))
		for _, cs := range spec.Columns {
			crecs = append(crecs, columnRecord{
				ColumnID:  newUUID(),
				TableID:   trec.TableID,
				Name:      cs.Name,
				Type:      cs.Type,
				CreatedAt: created,
			})
		}
		if _, err := tx.NewInsert().Model(&crecs).Returning("NULL").Exec(ctx); err != nil {
			return nil, storageErr(err, "inserting seed columns")
		}
		for i := range crecs {
			columns = append(columns, crecs[i].entity())
		}
	}

	if spec.Rows != nil {
		if _, err := b.insertRows(ctx, tx, trec.TableID, spec.Rows(columns)); err != nil {
			return nil, err
		}
	}

	table := trec.entity()
	return &table, nil
}

// ListTables returns the tables of a base in creation order.
func (b *Backend) ListTables(ctx context.Context, baseID string) ([]types.Table, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var recs []tableRecord
	err = db.NewSelect().
		Model(&recs).
		Where("t.base_id = ?", baseID).
		OrderExpr("t.seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageErr(err, "listing tables")
	}

	tables := make([]types.Table, 0, len(recs))
	for i := range recs {
		tables = append(tables, recs[i].entity())
	}
	return tables, nil
}

// GetTable retrieves a table by ID.
func (b *Backend) GetTable(ctx context.Context, tableID string) (*types.Table, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	return getTable(ctx, db, tableID)
}

func getTable(ctx context.Context, db bun.IDB, tableID string) (*types.Table, error) {
	rec := new(tableRecord)
	if err := db.NewSelect().Model(rec).Where("t.table_id = ?", tableID).Scan(ctx); err != nil {
		return nil, notFound(err, "getting table")
	}
	table := rec.entity()
	return &table, nil
}

// bumpVersion increments the table's mutation stamp inside tx and returns
// the new value. Returns ErrNotFound if the table does not exist.
func bumpVersion(ctx context.Context, tx bun.Tx, tableID string) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*tableRecord)(nil)).
		Set("version = version + 1").
		Where("table_id = ?", tableID).
		Exec(ctx)
	if err != nil {
		return 0, storageErr(err, "bumping table version")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, types.ErrNotFound
	}

	var version int64
	err = tx.NewSelect().
		Model((*tableRecord)(nil)).
		Column("version").
		Where("table_id = ?", tableID).
		Scan(ctx, &version)
	if err != nil {
		return 0, notFound(err, "reading table version")
	}
	return version, nil
}

// tableExists reports whether the table is present, for operations that
// need ErrNotFound before any write.
func tableExists(ctx context.Context, db bun.IDB, tableID string) error {
	exists, err := db.NewSelect().Model((*tableRecord)(nil)).Where("t.table_id = ?", tableID).Exists(ctx)
	if err != nil {
		return storageErr(err, "checking table")
	}
	if !exists {
		return types.ErrNotFound
	}
	return nil
}
