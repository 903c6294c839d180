// Package tablebase defines the endgame-tablebase probe surface the
// search consults. Probers are external collaborators: the engine
// ships none, but anything implementing Prober (a Syzygy reader, a
// network probe, a test stub) can be plugged into the pool.
package tablebase

import "gannet/internal/board"

// WDL is a win/draw/loss verdict from the side to move's view.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // lost, but the 50-move rule may save it
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // won, but the 50-move rule may spoil it
	WDLWin         WDL = 2
)

// RootMove is a tablebase-ranked move at the root.
type RootMove struct {
	Move board.Move
	WDL  WDL
	DTZ  int // distance to the next zeroing move
}

// Prober answers position lookups. Implementations must be safe for
// concurrent use: every search worker may probe.
type Prober interface {
	// ProbeWDL classifies the position. ok is false when the
	// position is not covered.
	ProbeWDL(pos *board.Position) (wdl WDL, ok bool)

	// ProbeRoot ranks the legal root moves, best first. Used to
	// filter the root move list when the position is covered.
	ProbeRoot(pos *board.Position) ([]RootMove, bool)

	// MaxPieces is the largest piece count the prober covers.
	MaxPieces() int
}
