package editor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grid/pkg/types"
)

func TestOptimisticCommit(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(fixture())
	m := newFakeMutator(fixture())
	m.gate = make(chan struct{})
	rec := &recorder{}
	e := New(cache, m, WithObserver(rec.observe))

	pos := Position{Row: 0, Col: 0}
	_, err := e.Focus(ctx, pos)
	require.NoError(t, err)
	assert.Equal(t, "n0", e.Buffer(), "focus loads the cached value")
	require.NoError(t, e.Input("Grace Hopper"))

	commit, err := e.Blur(ctx)
	require.NoError(t, err)
	assert.Equal(t, Committing, e.State(pos))
	assert.Equal(t, "Grace Hopper", cache.Get().Rows[0].Data["name"], "speculative value is visible at once")

	m.gate <- struct{}{}
	require.NoError(t, commit.Wait())

	assert.Equal(t, Clean, e.State(pos))
	got := cache.Get()
	assert.Equal(t, int64(4), got.Version, "cache holds the server aggregate")
	assert.Equal(t, "Grace Hopper", got.Rows[0].Data["name"])
	assert.Equal(t, []State{Clean, Editing, Committing, Reconciling, Clean}, rec.For(pos))

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.CellUpdate{
		TableID:  "t1",
		RowIndex: 0,
		RowID:    "r0",
		ColumnID: "name",
		Value:    "Grace Hopper",
	}, calls[0])
}

func TestRollbackRestoresExactSnapshot(t *testing.T) {
	tests := []struct {
		name  string
		pos   Position
		input string
	}{
		{name: "text over text", pos: Position{Row: 0, Col: 0}, input: "changed"},
		{name: "number over explicit null", pos: Position{Row: 1, Col: 1}, input: "42"},
		{name: "number over missing key", pos: Position{Row: 2, Col: 1}, input: "7"},
		{name: "clear a number", pos: Position{Row: 0, Col: 1}, input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewCache(fixture())
			before, err := json.Marshal(cache.Get())
			require.NoError(t, err)

			// The refetch fails too, so the cache keeps the restored snapshot.
			m := newFakeMutator(fixture())
			m.err = errServer
			m.fetchErr = errServer
			m.gate = make(chan struct{})
			rec := &recorder{}
			e := New(cache, m, WithObserver(rec.observe))

			_, err = e.Focus(ctx, tt.pos)
			require.NoError(t, err)
			require.NoError(t, e.Input(tt.input))
			commit, err := e.Blur(ctx)
			require.NoError(t, err)

			during, err := json.Marshal(cache.Get())
			require.NoError(t, err)
			assert.NotEqual(t, string(before), string(during), "speculative write is applied")

			m.gate <- struct{}{}
			assert.ErrorIs(t, commit.Wait(), errServer)

			after, err := json.Marshal(cache.Get())
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
			assert.Equal(t, Clean, e.State(tt.pos))
			assert.Equal(t, []State{Clean, Editing, Committing, RollingBack, Clean}, rec.For(tt.pos))
		})
	}
}

func TestBlurCoercion(t *testing.T) {
	tests := []struct {
		name    string
		pos     Position
		input   string
		want    any
		wantErr error
	}{
		{name: "number column parses", pos: Position{Row: 0, Col: 1}, input: "12.5", want: 12.5},
		{name: "number column trims spaces", pos: Position{Row: 0, Col: 1}, input: " 3 ", want: float64(3)},
		{name: "empty number is null", pos: Position{Row: 0, Col: 1}, input: "", want: nil},
		{name: "blank number is null", pos: Position{Row: 0, Col: 1}, input: " \t ", want: nil},
		{name: "empty text is null", pos: Position{Row: 0, Col: 0}, input: "", want: nil},
		{name: "blank text keeps its spaces", pos: Position{Row: 0, Col: 0}, input: "  ", want: "  "},
		{name: "text keeps digits as text", pos: Position{Row: 0, Col: 0}, input: "42", want: "42"},
		{name: "unparsable number", pos: Position{Row: 0, Col: 1}, input: "abc", wantErr: ErrInvalidNumber},
		{name: "infinite number", pos: Position{Row: 0, Col: 1}, input: "Inf", wantErr: ErrInvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := newFakeMutator(fixture())
			e := New(NewCache(fixture()), m)

			_, err := e.Focus(ctx, tt.pos)
			require.NoError(t, err)
			require.NoError(t, e.Input(tt.input))
			commit, err := e.Blur(ctx)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, types.ErrValidation)
				assert.Equal(t, Editing, e.State(tt.pos), "cell stays in editing")
				assert.Empty(t, m.Calls())
				return
			}
			require.NoError(t, err)
			require.NoError(t, commit.Wait())
			calls := m.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0].Value)
		})
	}
}

func TestEveryBlurSendsItsOwnRequest(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(fixture())
	m := newFakeMutator(fixture())
	e := New(cache, m)

	for _, text := range []string{"first", "second", "third"} {
		_, err := e.Focus(ctx, Position{Row: 0, Col: 0})
		require.NoError(t, err)
		require.NoError(t, e.Input(text))
		_, err = e.Blur(ctx)
		require.NoError(t, err)
	}
	e.Wait()

	assert.Len(t, m.Calls(), 3)
	// Responses race, but the refetch after the last one settles the cache
	// on the server state.
	assert.Equal(t, int64(6), cache.Get().Version)
	assert.Equal(t, m.Server(), cache.Get())
	assert.Equal(t, 1, m.Fetches())
	assert.Equal(t, Clean, e.State(Position{Row: 0, Col: 0}))
}

func TestRollbackRefetchesServerState(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(fixture())
	m := newFakeMutator(fixture())
	m.err = errServer
	e := New(cache, m)

	// The server moved on since the cache was filled.
	m.base.Rows[2].Data["name"] = "renamed elsewhere"
	m.base.Version++

	_, err := e.Focus(ctx, Position{Row: 0, Col: 0})
	require.NoError(t, err)
	require.NoError(t, e.Input("rejected"))
	commit, err := e.Blur(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, commit.Wait(), errServer)

	assert.Equal(t, m.Server(), cache.Get())
	assert.Equal(t, "n0", cache.Get().Rows[0].Data["name"])
	assert.Equal(t, "renamed elsewhere", cache.Get().Rows[2].Data["name"])
}

func TestInterleavedCommitsMatchServer(t *testing.T) {
	tests := []struct {
		name         string
		releaseOrder []int
	}{
		{name: "failure settles after success", releaseOrder: []int{1, 0}},
		{name: "success settles after failure", releaseOrder: []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewCache(fixture())
			m := newFakeMutator(fixture())
			m.rowGates = map[int]chan struct{}{0: make(chan struct{}), 1: make(chan struct{})}
			m.rowErrs = map[int]error{0: errServer}
			e := New(cache, m)

			commits := map[int]*Commit{}
			for row, text := range []string{"A-new", "B-new"} {
				_, err := e.Focus(ctx, Position{Row: row, Col: 0})
				require.NoError(t, err)
				require.NoError(t, e.Input(text))
				commits[row], err = e.Blur(ctx)
				require.NoError(t, err)
			}

			for _, row := range tt.releaseOrder {
				m.rowGates[row] <- struct{}{}
				<-commits[row].Done()
			}
			e.Wait()

			assert.ErrorIs(t, commits[0].Wait(), errServer)
			assert.NoError(t, commits[1].Wait())

			got := cache.Get()
			assert.Equal(t, m.Server(), got, "cache matches what the server persisted")
			assert.Equal(t, "n0", got.Rows[0].Data["name"])
			assert.Equal(t, "B-new", got.Rows[1].Data["name"])
			assert.Equal(t, 1, m.Fetches(), "one refetch once both settle")
			assert.Equal(t, Clean, e.State(Position{Row: 0, Col: 0}))
			assert.Equal(t, Clean, e.State(Position{Row: 1, Col: 0}))
		})
	}
}

func TestRefetchYieldsToNewerCommit(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(fixture())
	m := newFakeMutator(fixture())
	m.rowGates = map[int]chan struct{}{1: make(chan struct{})}
	m.fetchGate = make(chan struct{})
	e := New(cache, m)

	first := Position{Row: 0, Col: 0}
	_, err := e.Focus(ctx, first)
	require.NoError(t, err)
	require.NoError(t, e.Input("first"))
	c1, err := e.Blur(ctx)
	require.NoError(t, err)

	// c1 is confirmed and its refetch is waiting on fetchGate.
	require.Eventually(t, func() bool { return e.State(first) == Reconciling }, 2*time.Second, time.Millisecond)

	second := Position{Row: 1, Col: 0}
	_, err = e.Focus(ctx, second)
	require.NoError(t, err)
	require.NoError(t, e.Input("second"))
	c2, err := e.Blur(ctx)
	require.NoError(t, err)

	m.fetchGate <- struct{}{}
	require.NoError(t, c1.Wait())
	assert.Equal(t, "second", cache.Get().Rows[1].Data["name"], "stale refetch does not erase the pending edit")

	m.rowGates[1] <- struct{}{}
	m.fetchGate <- struct{}{}
	require.NoError(t, c2.Wait())

	assert.Equal(t, m.Server(), cache.Get())
	assert.Equal(t, "first", cache.Get().Rows[0].Data["name"])
	assert.Equal(t, "second", cache.Get().Rows[1].Data["name"])
}

func TestFocusErrors(t *testing.T) {
	ctx := context.Background()

	e := New(NewCache(nil), newFakeMutator(fixture()))
	_, err := e.Focus(ctx, Position{})
	assert.ErrorIs(t, err, ErrNoCache)

	e = New(NewCache(fixture()), newFakeMutator(fixture()))
	_, err = e.Focus(ctx, Position{Row: 3, Col: 0})
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = e.Focus(ctx, Position{Row: 0, Col: 2})
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.ErrorIs(t, e.Input("x"), ErrNotEditing)
	_, err = e.Blur(ctx)
	assert.ErrorIs(t, err, ErrNotEditing)
	_, err = e.Move(ctx, KeyDown)
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestFocusElsewhereCommitsCurrentCell(t *testing.T) {
	ctx := context.Background()
	m := newFakeMutator(fixture())
	e := New(NewCache(fixture()), m)

	_, err := e.Focus(ctx, Position{Row: 0, Col: 0})
	require.NoError(t, err)
	require.NoError(t, e.Input("moved away"))

	commit, err := e.Focus(ctx, Position{Row: 1, Col: 0})
	require.NoError(t, err)
	require.NotNil(t, commit)
	require.NoError(t, commit.Wait())

	pos, ok := e.Focused()
	assert.True(t, ok)
	assert.Equal(t, Position{Row: 1, Col: 0}, pos)
	assert.Equal(t, "moved away", m.Calls()[0].Value)

	again, err := e.Focus(ctx, Position{Row: 1, Col: 0})
	require.NoError(t, err)
	assert.Nil(t, again, "refocusing the same cell commits nothing")
}
