package editor

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/grid/pkg/types"
)

var (
	ErrNoCache     = errors.New("no aggregate cached")
	ErrStaleCache  = errors.New("cached aggregate is stale")
	ErrTxDone      = errors.New("transaction already finished")
	ErrNotEditing  = errors.New("no cell is being edited")
	ErrOutOfRange  = errors.New("cell position outside the grid")
	ErrNilResponse = errors.New("server returned no aggregate")
)

// ErrInvalidNumber is returned by Blur when a number cell holds text that
// does not parse. The cell stays in Editing.
var ErrInvalidNumber = fmt.Errorf("%w: not a number", types.ErrValidation)
