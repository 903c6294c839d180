package nnue

import "gannet/internal/board"

// Evaluator binds a shared immutable Network to per-worker mutable
// state: the accumulator stack tracking the search line and the
// refresh cache. Each worker owns exactly one Evaluator.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
	cache *Cache
}

// NewEvaluator creates per-worker state over a loaded network.
func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{
		net:   net,
		stack: NewAccumulatorStack(),
		cache: NewCache(net.FeatureTransformer),
	}
}

// Network returns the shared network.
func (e *Evaluator) Network() *Network { return e.net }

// Reset aligns the evaluator with a freshly set position: the stack
// collapses to a single uncomputed root entry.
func (e *Evaluator) Reset() {
	e.stack.Reset()
}

// NewGame additionally drops the refresh cache.
func (e *Evaluator) NewGame() {
	e.stack.Reset()
	e.cache.Clear(e.net.FeatureTransformer)
}

// DoMove records the board delta of a move the position just made.
func (e *Evaluator) DoMove(pos *board.Position) {
	e.stack.Push(pos.DirtyPiece())
}

// DoNullMove opens a stack entry with an empty delta.
func (e *Evaluator) DoNullMove() {
	var empty board.DirtyPiece
	e.stack.Push(&empty)
}

// UndoMove discards the top stack entry.
func (e *Evaluator) UndoMove() {
	e.stack.Pop()
}

// Evaluate returns the network score of pos in centipawns from the
// side to move's point of view.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	e.ensure(pos, board.White)
	e.ensure(pos, board.Black)

	acc := e.stack.Current()
	psqt, positional := e.net.Forward(acc, int(pos.SideToMove), pos.TotalPieceCount())
	return int(psqt + positional)
}

// ensure makes the perspective's accumulator half of the current
// position valid: reuse it, replay deltas from the nearest computed
// ancestor, or rebuild through the refresh cache when the king moved.
func (e *Evaluator) ensure(pos *board.Position, perspective board.Color) {
	s := e.stack
	if s.entries[s.top].acc.Computed[perspective] {
		return
	}

	// Walk towards the root until a computed half is found. A king
	// move of this perspective along the way invalidates the whole
	// path: those deltas cannot be replayed under the new bucket.
	i := s.top
	for i > 0 {
		if RequiresRefresh(&s.entries[i].dirty, perspective) {
			i = -1
			break
		}
		i--
		if s.entries[i].acc.Computed[perspective] {
			break
		}
	}

	if i < 0 || !s.entries[i].acc.Computed[perspective] {
		e.cache.Refresh(e.net.FeatureTransformer, pos, s.Current(), perspective)
		return
	}

	// Replay the deltas upward. The king square is stable across the
	// whole path, so every index is formed against the current one.
	ksq := pos.KingSquare(perspective)
	ft := e.net.FeatureTransformer
	prev := &s.entries[i].acc
	for j := i + 1; j <= s.top; j++ {
		var removed, added IndexList
		AppendChangedIndices(&s.entries[j].dirty, perspective, ksq, &removed, &added)
		ft.Update(prev, &s.entries[j].acc, int(perspective), &removed, &added)
		prev = &s.entries[j].acc
	}
}
