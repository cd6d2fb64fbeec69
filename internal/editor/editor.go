package editor

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/grid/internal/logger"
	"github.com/mesh-intelligence/grid/pkg/types"
)

// Mutator sends a cell update to the server and returns the refreshed
// aggregate. Aggregate reads the table as the server currently holds it.
// grid.Service and api.Client both satisfy it.
type Mutator interface {
	UpdateCell(ctx context.Context, u types.CellUpdate) (*types.Aggregate, error)
	Aggregate(ctx context.Context, tableID string) (*types.Aggregate, error)
}

// Option configures an Editor.
type Option func(*Editor)

// WithObserver reports every cell state change to fn. fn runs with the
// editor locked and must not call back into it.
func WithObserver(fn func(Transition)) Option {
	return func(e *Editor) { e.observe = fn }
}

// Editor drives cell edits against a cache and a mutator. One cell at a
// time has focus; any number of commits may be in flight. Commits are
// never cancelled. When the last in-flight commit settles, success or
// failure, the editor refetches the table so a rollback never hides a
// write the server confirmed in the meantime.
type Editor struct {
	cache   *Cache
	mutator Mutator
	observe func(Transition)

	mu       sync.Mutex
	focused  bool
	pos      Position
	buffer   string
	inflight map[Position]int
	states   map[Position]State
	active   int
	epoch    uint64
	pending  sync.WaitGroup
}

// New returns an editor over cache that commits through m.
func New(cache *Cache, m Mutator, opts ...Option) *Editor {
	e := &Editor{
		cache:    cache,
		mutator:  m,
		inflight: make(map[Position]int),
		states:   make(map[Position]State),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state of the cell at pos.
func (e *Editor) State(pos Position) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(pos)
}

func (e *Editor) stateLocked(pos Position) State {
	if e.focused && e.pos == pos {
		return Editing
	}
	return e.states[pos]
}

// setState records the commit state of pos, which State reports whenever
// pos is not focused.
func (e *Editor) setState(pos Position, to State) {
	from := e.states[pos]
	if to == Clean {
		delete(e.states, pos)
	} else {
		e.states[pos] = to
	}
	e.notify(pos, from, to)
}

func (e *Editor) notify(pos Position, from, to State) {
	if e.observe != nil && from != to {
		e.observe(Transition{Pos: pos, From: from, To: to})
	}
}

// Focused returns the focused cell, if any.
func (e *Editor) Focused() (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, e.focused
}

// Buffer returns the text being edited.
func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Focus commits the cell being left, if any, and starts editing pos with
// its cached value as the initial text.
func (e *Editor) Focus(ctx context.Context, pos Position) (*Commit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	agg := e.cache.Get()
	if agg == nil {
		return nil, ErrNoCache
	}
	if pos.Row < 0 || pos.Row >= len(agg.Rows) || pos.Col < 0 || pos.Col >= len(agg.Columns) {
		return nil, ErrOutOfRange
	}
	if e.focused && e.pos == pos {
		return nil, nil
	}

	var commit *Commit
	if e.focused {
		var err error
		if commit, err = e.blurLocked(ctx, agg); err != nil {
			return nil, err
		}
	}

	e.setFocus(pos, Format(agg.Rows[pos.Row].Data[agg.Columns[pos.Col].ColumnID]))
	return commit, nil
}

func (e *Editor) setFocus(pos Position, buffer string) {
	e.focused, e.pos, e.buffer = true, pos, buffer
	e.notify(pos, e.states[pos], Editing)
}

// Input replaces the text of the focused cell.
func (e *Editor) Input(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.focused {
		return ErrNotEditing
	}
	e.buffer = text
	return nil
}

// Blur ends editing of the focused cell and commits it. The cached
// aggregate shows the new value immediately; the returned Commit settles
// once the server answers. A number cell holding unparsable text returns
// ErrInvalidNumber and stays focused.
func (e *Editor) Blur(ctx context.Context) (*Commit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.focused {
		return nil, ErrNotEditing
	}
	agg := e.cache.Get()
	if agg == nil {
		return nil, ErrNoCache
	}
	return e.blurLocked(ctx, agg)
}

// Move commits the focused cell and focuses its neighbour in the direction
// of key. Returns nil when the move is clamped to the same cell.
func (e *Editor) Move(ctx context.Context, key Key) (*Commit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.focused {
		return nil, ErrNotEditing
	}
	agg := e.cache.Get()
	if agg == nil {
		return nil, ErrNoCache
	}

	target := Next(e.pos, key, len(agg.Rows), len(agg.Columns))
	if target == e.pos {
		return nil, nil
	}
	commit, err := e.blurLocked(ctx, agg)
	if err != nil {
		return nil, err
	}
	// The cache now holds the speculative value of the cell just left.
	agg = e.cache.Get()
	e.setFocus(target, Format(agg.Rows[target.Row].Data[agg.Columns[target.Col].ColumnID]))
	return commit, nil
}

// Wait blocks until every commit started so far has settled.
func (e *Editor) Wait() {
	e.pending.Wait()
}

func (e *Editor) blurLocked(ctx context.Context, agg *types.Aggregate) (*Commit, error) {
	pos := e.pos
	if pos.Row >= len(agg.Rows) || pos.Col >= len(agg.Columns) {
		// The grid shrank under the focused cell.
		e.focused = false
		return nil, ErrOutOfRange
	}
	col := agg.Columns[pos.Col]
	value, err := Coerce(col, e.buffer)
	if err != nil {
		return nil, err
	}

	tx, err := e.cache.Begin()
	if err != nil {
		return nil, err
	}
	if err := tx.Apply(pos.Row, col.ColumnID, value); err != nil {
		return nil, err
	}

	update := types.CellUpdate{
		TableID:  agg.TableID,
		RowIndex: pos.Row,
		RowID:    agg.Rows[pos.Row].RowID,
		ColumnID: col.ColumnID,
		Value:    value,
	}

	e.focused, e.buffer = false, ""
	e.inflight[pos]++
	e.active++
	e.epoch++
	e.states[pos] = Committing
	e.notify(pos, Editing, Committing)

	c := &Commit{Pos: pos, Update: update, done: make(chan struct{})}
	e.pending.Add(1)
	go e.run(ctx, tx, c)
	return c, nil
}

// run sends one update, settles its transaction, and refetches the table
// if no other commit is still in flight.
func (e *Editor) run(ctx context.Context, tx *Transaction, c *Commit) {
	defer e.pending.Done()
	defer close(c.done)

	agg, err := e.mutator.UpdateCell(ctx, c.Update)
	if err == nil && agg == nil {
		err = ErrNilResponse
	}

	e.mu.Lock()
	if err != nil {
		e.setState(c.Pos, RollingBack)
		_ = tx.Revert()
		c.err = err
	} else {
		e.setState(c.Pos, Reconciling)
		_ = tx.Commit(agg)
	}
	e.active--
	last, epoch := e.active == 0, e.epoch
	e.mu.Unlock()

	if last {
		e.refresh(ctx, c.Update.TableID, epoch)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight[c.Pos]--
	if e.inflight[c.Pos] > 0 {
		e.setState(c.Pos, Committing)
		return
	}
	delete(e.inflight, c.Pos)
	e.setState(c.Pos, Clean)
}

// refresh replaces the cache with the server's current aggregate. A blur
// started while the read was out owns the next refresh, so the result is
// dropped if epoch moved. On a failed read the cache keeps what the last
// settle left in it.
func (e *Editor) refresh(ctx context.Context, tableID string, epoch uint64) {
	fresh, err := e.mutator.Aggregate(ctx, tableID)
	if err == nil && fresh == nil {
		err = ErrNilResponse
	}
	if err != nil {
		logger.Log.Warn("refetching table after commit", "table_id", tableID, "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active > 0 || e.epoch != epoch {
		return
	}
	e.cache.Set(fresh)
}

// Commit is one in-flight cell update.
type Commit struct {
	Pos    Position
	Update types.CellUpdate

	done chan struct{}
	err  error
}

// Done is closed once the commit has settled.
func (c *Commit) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the commit settles and returns the server error, if
// any. A non-nil error means the cache was rolled back to the snapshot
// taken at Blur, then refetched if this was the last commit in flight.
func (c *Commit) Wait() error {
	<-c.done
	return c.err
}
