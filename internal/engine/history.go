package engine

import "gannet/internal/board"

// History tables are per-worker and unsynchronised. All of them use
// the same saturating "gravity" update: a bonus pulls the entry
// towards its limit proportionally to the remaining headroom, so
// values settle instead of overflowing.
const historyLimit = 16384

func gravity(entry *int16, bonus int) {
	b := clamp(bonus, -historyLimit, historyLimit)
	*entry += int16(b - int(*entry)*abs(b)/historyLimit)
}

// statBonus is the history reward for a move that caused a cutoff at
// the given depth; failures receive the negated value.
func statBonus(depth int) int {
	return min(160*depth-100, 1650)
}

// ButterflyHistory scores quiet moves by color and from/to squares.
type ButterflyHistory [2][64 * 64]int16

func butterflyIndex(m board.Move) int {
	return int(m.From())<<6 | int(m.To())
}

func (h *ButterflyHistory) Get(c board.Color, m board.Move) int {
	return int(h[c][butterflyIndex(m)])
}

func (h *ButterflyHistory) Update(c board.Color, m board.Move, bonus int) {
	gravity(&h[c][butterflyIndex(m)], bonus)
}

// CaptureHistory scores captures by moving piece, target square and
// victim type.
type CaptureHistory [12][64][6]int16

func (h *CaptureHistory) Get(pc board.Piece, to board.Square, victim board.PieceType) int {
	return int(h[pc][to][victim])
}

func (h *CaptureHistory) Update(pc board.Piece, to board.Square, victim board.PieceType, bonus int) {
	gravity(&h[pc][to][victim], bonus)
}

// PieceToHistory scores a move given only its moved piece and target
// square; continuation history chains them off previous moves.
type PieceToHistory [12][64]int16

func (h *PieceToHistory) Get(pc board.Piece, to board.Square) int {
	return int(h[pc][to])
}

func (h *PieceToHistory) Update(pc board.Piece, to board.Square, bonus int) {
	gravity(&h[pc][to], bonus)
}

// ContinuationHistory is indexed by the previous move's piece and
// destination, giving the follow-up table for the current move.
type ContinuationHistory [12][64]PieceToHistory

func (h *ContinuationHistory) Table(pc board.Piece, to board.Square) *PieceToHistory {
	return &h[pc][to]
}

// CounterMoves remembers the refutation of a previous piece/to pair.
type CounterMoves [12][64]board.Move

func (cm *CounterMoves) Get(pc board.Piece, to board.Square) board.Move {
	return cm[pc][to]
}

func (cm *CounterMoves) Put(pc board.Piece, to board.Square, m board.Move) {
	cm[pc][to] = m
}

// historySet groups the per-worker tables so the search and the move
// picker share one view of them.
type historySet struct {
	main     ButterflyHistory
	captures CaptureHistory
	cont     ContinuationHistory
	counters CounterMoves

	// Sentinel continuation table for plies preceded by a null move
	// or the root; always zero.
	noCont PieceToHistory
}

// clear wipes every table; used on ucinewgame.
func (h *historySet) clear() {
	h.main = ButterflyHistory{}
	h.captures = CaptureHistory{}
	h.cont = ContinuationHistory{}
	h.counters = CounterMoves{}
}
