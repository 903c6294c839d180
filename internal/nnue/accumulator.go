package nnue

import "gannet/internal/board"

// Accumulator is the transformer state for one position: one half per
// perspective plus the PSQT side channel. A half is only meaningful
// when its Computed flag is set.
type Accumulator struct {
	Accumulation [2][HalfDimensions]int16
	PSQT         [2][PSQTBuckets]int32
	Computed     [2]bool
}

// maxStack bounds the accumulator stack depth; it tracks the deepest
// search line plus the moves played from the root position.
const maxStack = 640

// stackEntry pairs an accumulator with the board delta that leads to
// it from the entry below.
type stackEntry struct {
	acc   Accumulator
	dirty board.DirtyPiece
}

// AccumulatorStack mirrors the position's state stack: one entry per
// DoMove. Entries are lazily computed; evaluation walks down to the
// nearest computed half and replays the deltas upward.
type AccumulatorStack struct {
	entries []stackEntry
	top     int
}

// NewAccumulatorStack creates a stack with one uncomputed root entry.
func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{entries: make([]stackEntry, maxStack)}
}

// Reset drops everything and invalidates the root entry.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.entries[0].acc.Computed[0] = false
	s.entries[0].acc.Computed[1] = false
}

// Push records the delta of a move just made and opens a fresh,
// uncomputed entry for the resulting position.
func (s *AccumulatorStack) Push(dirty *board.DirtyPiece) {
	s.top++
	e := &s.entries[s.top]
	e.dirty = *dirty
	e.acc.Computed[0] = false
	e.acc.Computed[1] = false
}

// Pop discards the top entry after a move is unmade.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the accumulator of the present position.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.entries[s.top].acc
}

// cacheEntry is one slot of the refresh cache: the accumulator half
// last computed with this king placement, plus the board it was
// computed for so the next refresh only applies the difference.
type cacheEntry struct {
	accumulation [HalfDimensions]int16
	psqt         [PSQTBuckets]int32
	pieces       [64]board.Piece
	occupied     board.Bitboard
}

// Cache holds per-king-square, per-perspective accumulator snapshots
// so a king move costs a sparse correction instead of a full rebuild.
// Each worker owns one; entries are only ever touched by that worker.
type Cache struct {
	entries [64][2]cacheEntry
}

// NewCache creates a cache seeded with the transformer biases, which
// is the accumulator of an empty board.
func NewCache(ft *FeatureTransformer) *Cache {
	c := &Cache{}
	c.Clear(ft)
	return c
}

// Clear re-seeds every entry from the transformer biases.
func (c *Cache) Clear(ft *FeatureTransformer) {
	for sq := 0; sq < 64; sq++ {
		for p := 0; p < 2; p++ {
			e := &c.entries[sq][p]
			copy(e.accumulation[:], ft.Biases)
			e.psqt = [PSQTBuckets]int32{}
			for i := range e.pieces {
				e.pieces[i] = board.NoPiece
			}
			e.occupied = 0
		}
	}
}

// Refresh rebuilds one accumulator half from the cache entry for the
// perspective's current king square, applying only the features that
// differ between the cached board and pos, then writes the result
// back so the entry tracks the freshest known placement.
func (c *Cache) Refresh(ft *FeatureTransformer, pos *board.Position, acc *Accumulator, perspective board.Color) {
	ksq := pos.KingSquare(perspective)
	e := &c.entries[ksq][perspective]

	accum := e.accumulation[:]
	psqt := e.psqt[:]

	// Squares whose contents differ between cache and board.
	changed := e.occupied | pos.AllOccupied
	for changed != 0 {
		sq := changed.PopLSB()
		oldPc := e.pieces[sq]
		newPc := pos.PieceAt(sq)
		if oldPc == newPc {
			continue
		}
		if oldPc != board.NoPiece {
			ft.sub(accum, psqt, MakeIndex(perspective, sq, oldPc, ksq))
		}
		if newPc != board.NoPiece {
			ft.add(accum, psqt, MakeIndex(perspective, sq, newPc, ksq))
		}
		e.pieces[sq] = newPc
	}
	e.occupied = pos.AllOccupied

	copy(acc.Accumulation[perspective][:], accum)
	acc.PSQT[perspective] = e.psqt
	acc.Computed[perspective] = true
}
