// Package generator synthesizes row data for seeding and bulk inserts.
package generator

import (
	"sync"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// Generator produces synthetic cell values. Number columns get random
// integers and every other column gets a random full name.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// New returns a generator. A zero seed draws from a random source; any other
// seed produces a repeatable sequence.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Rows builds count rows for a bulk insert. Every row carries a non-null
// value for every column.
func (g *Generator) Rows(columns []types.Column, count int) []types.RowData {
	return g.rows(columns, count, types.BulkValueMin, types.BulkValueMax)
}

// Seed builds the rows a new table starts with.
func (g *Generator) Seed(columns []types.Column) []types.RowData {
	return g.rows(columns, types.SeedRowCount, types.SeedValueMin, types.SeedValueMax)
}

func (g *Generator) rows(columns []types.Column, count, lo, hi int) []types.RowData {
	if count <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := make([]types.RowData, count)
	for i := range rows {
		data := make(types.RowData, len(columns))
		for _, col := range columns {
			if col.IsNumeric() {
				data[col.ColumnID] = float64(g.faker.IntRange(lo, hi))
			} else {
				data[col.ColumnID] = g.faker.Name()
			}
		}
		rows[i] = data
	}
	return rows
}

// NullRow returns a row with an explicit null for every column.
func NullRow(columns []types.Column) types.RowData {
	data := make(types.RowData, len(columns))
	for _, col := range columns {
		data[col.ColumnID] = nil
	}
	return data
}
