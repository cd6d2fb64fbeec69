// Package grid composes tables into aggregates and implements every grid
// operation on top of a types.Store. Input is validated before the store is
// touched, and every mutation answers with the refreshed first page.
package grid

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/grid/internal/generator"
	"github.com/mesh-intelligence/grid/internal/logger"
	"github.com/mesh-intelligence/grid/pkg/types"
)

// Names given to the tables created on first access.
const (
	DefaultBaseName  = "Default Base"
	DefaultTableName = "Default Table"
)

// summaryConcurrency bounds the column and count lookups GetBases runs at
// once.
const summaryConcurrency = 4

// Service implements the grid operations.
type Service struct {
	store    types.Store
	gen      *generator.Generator
	pageSize int
	defaults singleflight.Group
}

// NewService returns a service over store. pageSize is the number of rows
// every aggregate carries; zero selects types.DefaultPageSize.
func NewService(store types.Store, gen *generator.Generator, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	if gen == nil {
		gen = generator.New(0)
	}
	return &Service{
		store:    store,
		gen:      gen,
		pageSize: pageSize,
	}
}

// PageSize returns the number of rows carried by each aggregate.
func (s *Service) PageSize() int {
	return s.pageSize
}

// seed describes a new table: Name and Value columns with synthetic rows.
func (s *Service) seed(baseName, tableName string) types.TableSeed {
	return types.TableSeed{
		BaseName:  baseName,
		TableName: tableName,
		Columns: []types.ColumnSeed{
			{Name: "Name", Type: types.ColumnTypeText},
			{Name: "Value", Type: types.ColumnTypeNumber},
		},
		Rows: s.gen.Seed,
	}
}

// GetOrCreateDefaultTable returns the user's first table, creating a seeded
// default base and table on first access. Concurrent calls for one user in
// this process share a single lookup; across processes the store's unique
// default key keeps at most one default base per user.
func (s *Service) GetOrCreateDefaultTable(ctx context.Context, userID string) (*types.Aggregate, error) {
	if userID == "" {
		return nil, types.ErrUnauthorized
	}

	// The flight outlives any one caller; each caller still stops waiting
	// when its own context ends.
	fctx := context.WithoutCancel(ctx)
	ch := s.defaults.DoChan(userID, func() (any, error) {
		table, err := s.store.FirstTableForUser(fctx, userID)
		if err == nil {
			return s.compose(fctx, table)
		}
		if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}

		table, created, err := s.store.CreateDefaultTable(fctx, userID, s.seed(DefaultBaseName, DefaultTableName))
		if err != nil {
			logger.Log.Error("creating default table", "user_id", userID, "error", err)
			return nil, err
		}
		if created {
			logger.Log.Info("created default table", "user_id", userID, "table_id", table.TableID)
		}
		return s.compose(fctx, table)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Callers that shared the flight must not share the aggregate.
		return res.Val.(*types.Aggregate).Clone(), nil
	}
}

// GetBases lists the user's bases newest first, each with its tables,
// their columns, and their row counts.
func (s *Service) GetBases(ctx context.Context, userID string) ([]types.BaseSummary, error) {
	if userID == "" {
		return nil, types.ErrUnauthorized
	}
	bases, err := s.store.ListBases(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]types.BaseSummary, len(bases))
	for i, base := range bases {
		tables, err := s.store.ListTables(ctx, base.BaseID)
		if err != nil {
			return nil, err
		}
		out[i] = types.BaseSummary{Base: base, Tables: make([]types.TableSummary, len(tables))}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(summaryConcurrency)
		for j, table := range tables {
			summary := &out[i].Tables[j]
			summary.Table = table
			g.Go(func() error {
				cols, err := s.store.ListColumns(gctx, table.TableID)
				if err != nil {
					return err
				}
				n, err := s.store.CountRows(gctx, table.TableID)
				if err != nil {
					return err
				}
				summary.Columns, summary.RowCount = cols, n
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetTableRows returns one page of rows. page is zero-based and limit must
// lie in [MinPageLimit, MaxPageLimit].
func (s *Service) GetTableRows(ctx context.Context, tableID string, page, limit int) (*types.RowPage, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	if page < 0 {
		return nil, types.ErrInvalidPage
	}
	if limit < types.MinPageLimit || limit > types.MaxPageLimit {
		return nil, types.ErrInvalidLimit
	}
	if _, err := s.store.GetTable(ctx, tableID); err != nil {
		return nil, err
	}
	return s.store.ListRows(ctx, tableID, page*limit, limit)
}

// CreateBase creates an empty base named name.
func (s *Service) CreateBase(ctx context.Context, userID, name string) (*types.Base, error) {
	if userID == "" {
		return nil, types.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}
	base, err := s.store.CreateBase(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("created base", "user_id", userID, "base_id", base.BaseID)
	return base, nil
}

// CreateTable creates a seeded table in one of the user's bases. A base
// owned by someone else is reported as not found.
func (s *Service) CreateTable(ctx context.Context, userID, baseID, name string) (*types.Aggregate, error) {
	if userID == "" {
		return nil, types.ErrUnauthorized
	}
	if baseID == "" {
		return nil, types.ErrInvalidID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}

	base, err := s.store.GetBase(ctx, baseID)
	if err != nil {
		return nil, err
	}
	if base.UserID != userID {
		return nil, types.ErrNotFound
	}
	table, err := s.store.CreateTable(ctx, baseID, s.seed(base.Name, name))
	if err != nil {
		return nil, err
	}
	logger.Log.Info("created table", "base_id", baseID, "table_id", table.TableID)
	return s.compose(ctx, table)
}

// UpdateCell writes one cell and returns the refreshed aggregate.
func (s *Service) UpdateCell(ctx context.Context, u types.CellUpdate) (*types.Aggregate, error) {
	if _, _, err := s.updateCell(ctx, u); err != nil {
		return nil, err
	}
	return s.Aggregate(ctx, u.TableID)
}

// PatchCell writes one cell and returns only the changed row with the new
// table version, for clients that merge deltas into a cached aggregate.
func (s *Service) PatchCell(ctx context.Context, u types.CellUpdate) (*types.CellPatch, error) {
	row, version, err := s.updateCell(ctx, u)
	if err != nil {
		return nil, err
	}
	return &types.CellPatch{
		TableID:  u.TableID,
		RowIndex: u.RowIndex,
		Row:      *row,
		Version:  version,
	}, nil
}

// updateCell addresses the row by position, or by ID when the caller names
// the row it believes sits at that position.
func (s *Service) updateCell(ctx context.Context, u types.CellUpdate) (*types.Row, int64, error) {
	if u.TableID == "" || u.ColumnID == "" {
		return nil, 0, types.ErrInvalidID
	}
	if u.RowIndex < 0 {
		return nil, 0, types.ErrInvalidRowIndex
	}
	value, err := types.NormalizeValue(u.Value)
	if err != nil {
		return nil, 0, err
	}

	if u.RowID == "" {
		return s.store.UpdateRowDataByIndex(ctx, u.TableID, u.RowIndex, u.ColumnID, value)
	}

	current, err := s.store.RowIDAt(ctx, u.TableID, u.RowIndex)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, 0, err
	}
	if current != u.RowID {
		return nil, 0, types.ErrConflict
	}
	return s.store.UpdateRowDataByID(ctx, u.TableID, u.RowID, u.ColumnID, value)
}

// AddColumn appends a column; every existing row holds null for it when
// this returns.
func (s *Service) AddColumn(ctx context.Context, tableID, name, columnType string) (*types.ColumnAdded, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}
	columnType = strings.TrimSpace(columnType)
	if columnType == "" {
		return nil, types.ErrInvalidColumnType
	}

	start := time.Now()
	col, err := s.store.AddColumn(ctx, tableID, name, columnType)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("added column",
		"table_id", tableID,
		"column_id", col.ColumnID,
		"type", columnType,
		"duration", time.Since(start),
	)

	agg, err := s.Aggregate(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return &types.ColumnAdded{Table: agg, Column: *col}, nil
}

// AddRow appends a row holding null for every column.
func (s *Service) AddRow(ctx context.Context, tableID string) (*types.Aggregate, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	cols, err := s.store.ListColumns(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.CreateRow(ctx, tableID, generator.NullRow(cols)); err != nil {
		return nil, err
	}
	return s.Aggregate(ctx, tableID)
}

// AddBulkRows synthesizes count rows in memory and persists them with one
// batch call.
func (s *Service) AddBulkRows(ctx context.Context, tableID string, count int) (*types.Aggregate, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	if count < types.MinBulkRows || count > types.MaxBulkRows {
		return nil, types.ErrInvalidCount
	}
	cols, err := s.store.ListColumns(ctx, tableID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows := s.gen.Rows(cols, count)
	generated := time.Since(start)

	n, err := s.store.CreateRowsBatch(ctx, tableID, rows)
	if err != nil {
		logger.Log.Error("bulk insert failed", "table_id", tableID, "count", count, "error", err)
		return nil, err
	}
	logger.Log.Info("bulk rows inserted",
		"table_id", tableID,
		"rows", n,
		"generate", generated,
		"total", time.Since(start),
	)
	return s.Aggregate(ctx, tableID)
}

// Aggregate loads the table, its columns, and its first page of rows.
func (s *Service) Aggregate(ctx context.Context, tableID string) (*types.Aggregate, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	table, err := s.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, table)
}

func (s *Service) compose(ctx context.Context, table *types.Table) (*types.Aggregate, error) {
	cols, err := s.store.ListColumns(ctx, table.TableID)
	if err != nil {
		return nil, err
	}
	page, err := s.store.ListRows(ctx, table.TableID, 0, s.pageSize)
	if err != nil {
		return nil, err
	}
	return &types.Aggregate{
		TableID:    table.TableID,
		BaseID:     table.BaseID,
		Name:       table.Name,
		Version:    table.Version,
		Columns:    cols,
		Rows:       page.Rows,
		TotalCount: page.TotalCount,
	}, nil
}
