package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mesh-intelligence/grid/pkg/types"
)

var errServer = errors.New("server unavailable")

// fixture is a three-row Name/Value aggregate. Row 1 holds an explicit null
// value and row 2 has no value key at all.
func fixture() *types.Aggregate {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	agg := &types.Aggregate{
		TableID: "t1",
		BaseID:  "b1",
		Name:    "Default Table",
		Version: 3,
		Columns: []types.Column{
			{ColumnID: "name", TableID: "t1", Name: "Name", Type: types.ColumnTypeText, CreatedAt: created},
			{ColumnID: "value", TableID: "t1", Name: "Value", Type: types.ColumnTypeNumber, CreatedAt: created},
		},
		TotalCount: 3,
	}
	for i := 0; i < 3; i++ {
		data := types.RowData{"name": fmt.Sprintf("n%d", i)}
		switch i {
		case 0:
			data["value"] = float64(10)
		case 1:
			data["value"] = nil
		}
		agg.Rows = append(agg.Rows, types.Row{
			RowID:     fmt.Sprintf("r%d", i),
			TableID:   "t1",
			CreatedAt: created,
			Data:      data,
		})
	}
	return agg
}

// fakeMutator answers like a server holding base: it applies each update
// positionally and bumps the version, or fails with err. When gate is set
// each update waits for a receive from it. rowGates and rowErrs override
// gate and err for updates to one row index. fetchGate and fetchErr do the
// same for Aggregate.
type fakeMutator struct {
	mu        sync.Mutex
	base      *types.Aggregate
	err       error
	gate      chan struct{}
	rowGates  map[int]chan struct{}
	rowErrs   map[int]error
	fetchGate chan struct{}
	fetchErr  error
	calls     []types.CellUpdate
	fetches   int
}

func newFakeMutator(base *types.Aggregate) *fakeMutator {
	return &fakeMutator{base: base.Clone()}
}

func (f *fakeMutator) UpdateCell(ctx context.Context, u types.CellUpdate) (*types.Aggregate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, u)
	gate, err := f.gate, f.err
	if g, ok := f.rowGates[u.RowIndex]; ok {
		gate = g
	}
	if e, ok := f.rowErrs[u.RowIndex]; ok {
		err = e
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.base.Rows[u.RowIndex].Data[u.ColumnID] = u.Value
	f.base.Version++
	return f.base.Clone(), nil
}

func (f *fakeMutator) Aggregate(ctx context.Context, tableID string) (*types.Aggregate, error) {
	f.mu.Lock()
	f.fetches++
	gate, err := f.fetchGate, f.fetchErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base.Clone(), nil
}

// Server returns a copy of what the fake server holds now.
func (f *fakeMutator) Server() *types.Aggregate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base.Clone()
}

func (f *fakeMutator) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeMutator) Calls() []types.CellUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.CellUpdate(nil), f.calls...)
}

// recorder collects state transitions.
type recorder struct {
	mu  sync.Mutex
	log []Transition
}

func (r *recorder) observe(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, t)
}

func (r *recorder) For(pos Position) []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var states []State
	for _, t := range r.log {
		if t.Pos != pos {
			continue
		}
		if len(states) == 0 {
			states = append(states, t.From)
		}
		states = append(states, t.To)
	}
	return states
}
