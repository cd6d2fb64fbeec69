// Package editor implements the client side of cell editing: a single-slot
// cache of the table aggregate, optimistic transactions that apply a
// speculative value and later commit the server's answer or restore the
// exact snapshot, and the per-cell state machine driven by focus, input,
// blur, and keyboard navigation.
//
// Cell states move Clean -> Editing -> Committing, then Reconciling on
// success or RollingBack on failure, and back to Clean.
package editor
