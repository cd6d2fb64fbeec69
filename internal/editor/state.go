package editor

import "fmt"

// State is the editing state of one cell.
type State int

// Cell states.
const (
	Clean State = iota
	Editing
	Committing
	Reconciling
	RollingBack
)

var stateNames = [...]string{
	Clean:       "clean",
	Editing:     "editing",
	Committing:  "committing",
	Reconciling: "reconciling",
	RollingBack: "rolling_back",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Position addresses a cell by row index and column index within the
// cached aggregate.
type Position struct {
	Row int
	Col int
}

// Transition is one state change of one cell, reported to an observer.
type Transition struct {
	Pos  Position
	From State
	To   State
}
