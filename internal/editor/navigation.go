package editor

// Key is a navigation key.
type Key int

// Navigation keys. Up and Down keep the column; Left, Right, and Tab keep
// the row.
const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyTab
)

// Next returns the cell reached from pos by key in a grid of rows by cols,
// clamped to the grid.
func Next(pos Position, key Key, rows, cols int) Position {
	switch key {
	case KeyUp:
		pos.Row--
	case KeyDown:
		pos.Row++
	case KeyLeft:
		pos.Col--
	case KeyRight, KeyTab:
		pos.Col++
	}
	pos.Row = clamp(pos.Row, rows)
	pos.Col = clamp(pos.Col, cols)
	return pos
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
