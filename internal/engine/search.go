package engine

import (
	"math"
	"sort"
	"sync/atomic"

	"gannet/internal/board"
	"gannet/internal/nnue"
)

type nodeType int

const (
	nodeRoot nodeType = iota
	nodePV
	nodeNonPV
)

// lmrTable holds the logarithmic base reductions, indexed by depth and
// move count.
var lmrTable [MaxPly][MaxPly]int

func init() {
	for d := 1; d < MaxPly; d++ {
		for m := 1; m < MaxPly; m++ {
			lmrTable[d][m] = int(0.40 + math.Log(float64(d))*math.Log(float64(m))/2.30)
		}
	}
}

func reduction(depth, moveCount int) int {
	return lmrTable[min(depth, MaxPly-1)][min(moveCount, MaxPly-1)]
}

// lmpCount is the move-count threshold beyond which quiet moves are no
// longer tried at the given depth.
func lmpCount(depth int, improving bool) int {
	if improving {
		return 3 + depth*depth
	}
	return (3 + depth*depth) / 2
}

// Helper workers stagger their iteration depths in a fixed pattern so
// they explore different horizons instead of racing in lockstep.
var (
	skipSize  = [20]int{1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4}
	skipPhase = [20]int{0, 1, 0, 1, 2, 3, 0, 1, 2, 3, 4, 5, 0, 1, 2, 3, 4, 5, 6, 7}
)

// RootMove is one candidate at the root with its running score and
// principal variation across iterations.
type RootMove struct {
	Move      board.Move
	Value     int
	PrevValue int
	SelDepth  int
	PV        []board.Move
}

// stackEntry is the per-ply search state. The worker's stack is
// offset by two entries so ply-1 and ply-2 lookups stay in bounds at
// the root.
type stackEntry struct {
	pv          [MaxPly + 1]board.Move
	pvLen       int
	killers     [2]board.Move
	currentMove board.Move
	movedPiece  board.Piece
	contHist    *PieceToHistory
	staticEval  int
	excluded    board.Move
	moveCount   int
	ttPV        bool
}

// Worker is one search thread. Worker 0 is the main worker: it drives
// time management and reporting; helpers only contribute nodes and TT
// entries.
type Worker struct {
	id   int
	pool *Pool

	pos  *board.Position
	eval *nnue.Evaluator

	hist historySet

	rootMoves      []RootMove
	rootDepth      int
	completedDepth int
	selDepth       int
	nmpMinPly      int
	pvIdx          int
	multiPV        int

	nodes atomic.Uint64

	bestMoveChanges float64

	stack [MaxPly + 8]stackEntry
}

func newWorker(id int, pool *Pool) *Worker {
	return &Worker{id: id, pool: pool}
}

// setNetwork rebuilds the worker's evaluator over a new network.
func (w *Worker) setNetwork(net *nnue.Network) {
	if net == nil {
		w.eval = nil
		return
	}
	w.eval = nnue.NewEvaluator(net)
}

// prepare points the worker at its own clone of the root position and
// rebuilds the root move list.
func (w *Worker) prepare(pos *board.Position, rootMoves []board.Move) {
	w.pos = pos.Clone()
	w.rootMoves = w.rootMoves[:0]
	for _, m := range rootMoves {
		w.rootMoves = append(w.rootMoves, RootMove{Move: m, Value: -ValueInfinite, PrevValue: -ValueInfinite})
	}
	w.nodes.Store(0)
	w.rootDepth = 0
	w.completedDepth = 0
	w.nmpMinPly = 0
	w.bestMoveChanges = 0
	for i := range w.stack {
		w.stack[i] = stackEntry{contHist: &w.hist.noCont, staticEval: ValueNone, movedPiece: board.NoPiece}
	}
	if w.eval != nil {
		w.eval.Reset()
	}
}

// bestRootMove returns the highest-ranked root move of the deepest
// completed iteration.
func (w *Worker) bestRootMove() *RootMove {
	if len(w.rootMoves) == 0 {
		return nil
	}
	return &w.rootMoves[0]
}

func (w *Worker) findRootMove(m board.Move) *RootMove {
	for i := range w.rootMoves {
		if w.rootMoves[i].Move == m {
			return &w.rootMoves[i]
		}
	}
	return nil
}

// isSearchable reports whether m belongs to the root moves still open
// in this MultiPV pass.
func (w *Worker) isSearchable(m board.Move) bool {
	for i := w.pvIdx; i < len(w.rootMoves); i++ {
		if w.rootMoves[i].Move == m {
			return true
		}
	}
	return false
}

func (w *Worker) sortRootMoves(from int) {
	rm := w.rootMoves
	sort.SliceStable(rm[from:], func(i, j int) bool {
		a, b := &rm[from+i], &rm[from+j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.PrevValue > b.PrevValue
	})
}

// iterate runs the iterative-deepening loop until stopped or the
// depth limit is reached.
func (w *Worker) iterate() {
	p := w.pool
	w.multiPV = min(p.multiPV, len(w.rootMoves))
	if w.multiPV == 0 {
		return
	}

	for w.rootDepth = 1; w.rootDepth < MaxPly; w.rootDepth++ {
		if p.stop.Load() {
			break
		}
		if p.limits.Depth > 0 && w.rootDepth > p.limits.Depth {
			break
		}
		if w.id != 0 {
			i := (w.id - 1) % len(skipSize)
			if (w.rootDepth+skipPhase[i])/skipSize[i]%2 != 0 {
				continue
			}
		}

		for i := range w.rootMoves {
			w.rootMoves[i].PrevValue = w.rootMoves[i].Value
		}
		if w.id == 0 {
			w.bestMoveChanges *= 0.5
		}

		for w.pvIdx = 0; w.pvIdx < w.multiPV && !p.stop.Load(); w.pvIdx++ {
			w.selDepth = 0

			// Aspiration window around the previous score.
			alpha, beta := -ValueInfinite, ValueInfinite
			delta := 18
			prev := w.rootMoves[w.pvIdx].PrevValue
			if w.rootDepth >= 4 && abs(prev) < ValueInfinite {
				alpha = max(prev-delta, -ValueInfinite)
				beta = min(prev+delta, ValueInfinite)
			}

			for {
				value := w.search(nodeRoot, alpha, beta, w.rootDepth, 0, false)
				w.sortRootMoves(w.pvIdx)
				if p.stop.Load() {
					break
				}
				if value <= alpha {
					beta = (alpha + beta) / 2
					alpha = max(value-delta, -ValueInfinite)
				} else if value >= beta {
					beta = min(value+delta, ValueInfinite)
				} else {
					break
				}
				delta += delta / 3
			}

			w.sortRootMoves(0)
			if w.id == 0 && (w.pvIdx+1 == w.multiPV || p.elapsed() > 3000) {
				p.reportIteration(w)
			}
		}

		if !p.stop.Load() {
			w.completedDepth = w.rootDepth
		}
		if w.id == 0 {
			p.afterIteration(w)
		}
	}
}

// drawValue dithers the draw score by one centipawn so repetitions do
// not all hash to the same value.
func (w *Worker) drawValue() int {
	return ValueDraw + 1 - 2*int(w.nodes.Load()&1)
}

// evaluate is the static evaluation: the NNUE network when loaded, a
// bare material count otherwise, both damped towards zero as the
// 50-move counter rises.
func (w *Worker) evaluate() int {
	var v int
	if w.eval != nil {
		v = w.eval.Evaluate(w.pos)
	} else {
		v = materialEval(w.pos)
	}
	v = v * (200 - w.pos.Rule50()) / 200
	return clamp(v, -ValueMateInMaxPly+1, ValueMateInMaxPly-1)
}

// materialEval is the evaluator-less fallback so the engine still
// plays before an EvalFile is configured.
func materialEval(pos *board.Position) int {
	us := pos.SideToMove
	them := us.Other()
	v := pos.NonPawnMaterial(us) - pos.NonPawnMaterial(them)
	v += board.PieceValue[board.Pawn] * (pos.PieceCount(us, board.Pawn) - pos.PieceCount(them, board.Pawn))
	return v + 12 // tempo
}

func (w *Worker) doMove(m board.Move, givesCheck bool) {
	w.pos.DoMoveGivesCheck(m, givesCheck)
	w.nodes.Add(1)
	if w.eval != nil {
		w.eval.DoMove(w.pos)
	}
}

func (w *Worker) undoMove(m board.Move) {
	w.pos.UndoMove(m)
	if w.eval != nil {
		w.eval.UndoMove()
	}
}

func (w *Worker) doNullMove() {
	w.pos.DoNullMove()
	w.nodes.Add(1)
	if w.eval != nil {
		w.eval.DoNullMove()
	}
}

func (w *Worker) undoNullMove() {
	w.pos.UndoNullMove()
	if w.eval != nil {
		w.eval.UndoMove()
	}
}

// updatePV prepends m to the child's principal variation.
func updatePV(ss, child *stackEntry, m board.Move) {
	ss.pv[0] = m
	copy(ss.pv[1:], child.pv[:child.pvLen])
	ss.pvLen = child.pvLen + 1
}

// search is the recursive PVS. The node type selects root, PV or
// zero-window behaviour; cutNode marks expected fail-high nodes for
// more aggressive reductions.
func (w *Worker) search(nt nodeType, alpha, beta, depth, ply int, cutNode bool) int {
	pvNode := nt != nodeNonPV
	rootNode := nt == nodeRoot
	pos := w.pos
	p := w.pool

	if depth <= 0 {
		return w.qsearch(pvNode, alpha, beta, 0, ply)
	}

	ss := &w.stack[ply+2]
	prev := &w.stack[ply+1]
	prev2 := &w.stack[ply]
	ss.pvLen = 0
	ss.moveCount = 0

	if w.id == 0 && w.nodes.Load()&1023 == 0 {
		p.checkLimits()
	}

	if !rootNode {
		if p.stop.Load() {
			return ValueDraw
		}
		if ply >= MaxPly {
			if pos.InCheck() {
				return ValueDraw
			}
			return w.evaluate()
		}
		if pos.IsDraw(ply) {
			return w.drawValue()
		}
		// A reachable repetition bounds the score at the draw value.
		if alpha < ValueDraw && pos.UpcomingRepetition(ply) {
			alpha = w.drawValue()
			if alpha >= beta {
				return alpha
			}
		}
		// Mate-distance pruning.
		alpha = max(matedIn(ply), alpha)
		beta = min(mateIn(ply+1), beta)
		if alpha >= beta {
			return alpha
		}
	}

	if pvNode && w.selDepth < ply+1 {
		w.selDepth = ply + 1
	}

	inCheck := pos.InCheck()
	excluded := ss.excluded
	posKey := pos.Key()

	ttData, ttWriter := p.tt.Probe(posKey)
	ttValue := ValueNone
	if ttData.Hit {
		ttValue = valueFromTT(ttData.Value, ply)
	}
	ttMove := board.NoMove
	switch {
	case rootNode:
		ttMove = w.rootMoves[w.pvIdx].Move
	case ttData.Hit:
		ttMove = ttData.Move
	}
	if excluded == board.NoMove {
		ss.ttPV = pvNode || (ttData.Hit && ttData.IsPV)
	}

	// TT cutoff. Skipped in PV nodes, under an exclusion search, and
	// when the 50-move counter is high enough that the stored score
	// may predate a relevant repetition horizon.
	if !pvNode && excluded == board.NoMove && ttData.Hit &&
		ttData.Depth >= depth && ttValue != ValueNone && pos.Rule50() < 90 {
		if (ttValue >= beta && ttData.Bound&BoundLower != 0) ||
			(ttValue < beta && ttData.Bound&BoundUpper != 0) {
			return ttValue
		}
	}

	// Tablebase probe.
	if !rootNode && excluded == board.NoMove && p.tb != nil &&
		pos.TotalPieceCount() <= p.tb.MaxPieces() && pos.Rule50() == 0 &&
		pos.Castling() == board.NoCastling {
		if wdl, ok := p.tb.ProbeWDL(pos); ok {
			p.tbHits.Add(1)
			value := ValueDraw
			bound := BoundExact
			switch {
			case int(wdl) < -1:
				value = matedIn(ply + MaxPly + 1)
				bound = BoundUpper
			case int(wdl) > 1:
				value = mateIn(ply + MaxPly + 1)
				bound = BoundLower
			default:
				value = int(wdl)
			}
			if bound == BoundExact ||
				(bound == BoundLower && value >= beta) ||
				(bound == BoundUpper && value <= alpha) {
				ttWriter.Save(posKey, valueToTT(value, ply), ss.ttPV, bound,
					min(depth+6, MaxPly-1), board.NoMove, ValueNone)
				return value
			}
		}
	}

	// Static evaluation.
	eval := ValueNone
	if inCheck {
		ss.staticEval = ValueNone
	} else {
		if ttData.Hit && ttData.Eval != ValueNone {
			ss.staticEval = ttData.Eval
		} else {
			ss.staticEval = w.evaluate()
			if excluded == board.NoMove {
				ttWriter.Save(posKey, ValueNone, ss.ttPV, BoundNone, -2, board.NoMove, ss.staticEval)
			}
		}
		eval = ss.staticEval
		// The TT value is a better estimate when its bound allows.
		if ttData.Hit && ttValue != ValueNone {
			if (ttValue > eval && ttData.Bound&BoundLower != 0) ||
				(ttValue < eval && ttData.Bound&BoundUpper != 0) {
				eval = ttValue
			}
		}
	}

	improving := !inCheck && ss.staticEval != ValueNone &&
		prev2.staticEval != ValueNone && ss.staticEval > prev2.staticEval

	if !inCheck && excluded == board.NoMove {
		// Razoring: hopeless nodes drop straight into quiescence.
		if !pvNode && depth <= 3 && eval+300+150*depth <= alpha {
			value := w.qsearch(false, alpha, alpha+1, 0, ply)
			if value <= alpha {
				return value
			}
		}

		// Reverse futility: a static eval far above beta at shallow
		// depth fails high without searching.
		if !pvNode && depth <= 8 && abs(beta) < ValueMateInMaxPly {
			margin := 80*depth - 55*b2i(improving)
			if eval-margin >= beta {
				return beta + (eval-beta)/3
			}
		}

		// Null-move pruning with verification at high depth.
		if !pvNode && eval >= beta && prev.currentMove != board.NullMove &&
			pos.HasNonPawnMaterial(pos.SideToMove) && ply >= w.nmpMinPly &&
			abs(beta) < ValueMateInMaxPly {
			r := 3 + depth/3 + min((eval-beta)/200, 3)
			ss.currentMove = board.NullMove
			ss.movedPiece = board.NoPiece
			ss.contHist = &w.hist.noCont
			w.doNullMove()
			value := -w.search(nodeNonPV, -beta, -beta+1, depth-r, ply+1, !cutNode)
			w.undoNullMove()
			if value >= beta && value < ValueMateInMaxPly {
				if w.nmpMinPly > 0 || depth < 13 {
					return value
				}
				// Verification search at the same ply with null moves
				// disabled down the tree, to filter zugzwang.
				w.nmpMinPly = ply + 3*(depth-r)/4
				verified := w.search(nodeNonPV, beta-1, beta, depth-r, ply, false)
				w.nmpMinPly = 0
				if verified >= beta {
					return value
				}
			}
		}

		// Probcut: a capture beating beta by a margin at reduced depth
		// almost certainly beats it at full depth.
		probcutBeta := beta + 180
		if !pvNode && depth >= 5 && abs(beta) < ValueMateInMaxPly &&
			!(ttData.Hit && ttData.Depth >= depth-3 && ttValue != ValueNone && ttValue < probcutBeta) {
			var captures board.MoveList
			pos.GenerateMoves(board.GenCaptures, &captures)
			for _, m := range captures.Slice() {
				if m == excluded || !pos.Legal(m) {
					continue
				}
				if !pos.SeeGe(m, probcutBeta-ss.staticEval) {
					continue
				}
				givesCheck := pos.GivesCheck(m)
				ss.currentMove = m
				ss.movedPiece = pos.PieceAt(m.From())
				ss.contHist = w.hist.cont.Table(ss.movedPiece, m.To())
				w.doMove(m, givesCheck)
				value := -w.qsearch(false, -probcutBeta, -probcutBeta+1, 0, ply+1)
				if value >= probcutBeta {
					value = -w.search(nodeNonPV, -probcutBeta, -probcutBeta+1, depth-4, ply+1, !cutNode)
				}
				w.undoMove(m)
				if value >= probcutBeta {
					ttWriter.Save(posKey, valueToTT(value, ply), ss.ttPV, BoundLower,
						depth-3, m, ss.staticEval)
					return value
				}
			}
		}
	}

	// Internal iterative reduction: a node this deep without a TT move
	// is cheaper to re-reach after a shallower pass seeds the table.
	if depth >= 4 && ttMove == board.NoMove && (pvNode || cutNode) {
		depth--
	}

	counter := board.NoMove
	if prev.movedPiece != board.NoPiece && prev.currentMove != board.NullMove {
		counter = w.hist.counters.Get(prev.movedPiece, prev.currentMove.To())
	}

	var mp MovePicker
	mp.init(pos, ttMove, depth, &w.hist, prev.contHist, prev2.contHist, ss.killers, counter)

	bestValue := -ValueInfinite
	bestMove := board.NoMove
	moveCount := 0
	skipQuiets := false
	var quietsTried, capturesTried triedMoves

	w.stack[ply+3].killers = [2]board.Move{}

	for m := mp.Next(skipQuiets); m != board.NoMove; m = mp.Next(skipQuiets) {
		if m == excluded {
			continue
		}
		if rootNode && !w.isSearchable(m) {
			continue
		}
		if !rootNode && !pos.Legal(m) {
			continue
		}
		moveCount++
		ss.moveCount = moveCount

		isCapture := pos.IsCapture(m)
		givesCheck := pos.GivesCheck(m)
		movedPiece := pos.PieceAt(m.From())
		newDepth := depth - 1

		// Shallow-depth pruning, once a best move guards against
		// returning a false mate score.
		if !rootNode && bestValue > -ValueMateInMaxPly &&
			pos.HasNonPawnMaterial(pos.SideToMove) {
			if moveCount >= lmpCount(depth, improving) {
				skipQuiets = true
			}
			if !isCapture && !givesCheck {
				if depth <= 6 && !inCheck && ss.staticEval+120+130*depth <= alpha {
					skipQuiets = true
				}
				histScore := w.hist.main.Get(pos.SideToMove, m) +
					prev.contHist.Get(movedPiece, m.To())
				if depth <= 4 && histScore < -3500*depth {
					continue
				}
				if !pos.SeeGe(m, -20*depth*depth) {
					continue
				}
			} else if !pos.SeeGe(m, -180*depth) {
				continue
			}
		}

		// Singular extension: is the TT move the only move that does
		// not fail low against a lowered window?
		extension := 0
		if depth >= 8 && !rootNode && m == ttMove && excluded == board.NoMove &&
			ttData.Hit && ttValue != ValueNone && abs(ttValue) < ValueMateInMaxPly &&
			ttData.Bound&BoundLower != 0 && ttData.Depth >= depth-3 {
			singularBeta := ttValue - 2*depth
			ss.excluded = m
			value := w.search(nodeNonPV, singularBeta-1, singularBeta, (depth-1)/2, ply, cutNode)
			ss.excluded = board.NoMove
			if value < singularBeta {
				extension = 1
				if !pvNode && value < singularBeta-20 {
					extension = 2
				}
			} else if singularBeta >= beta {
				// Multi-cut: even without the TT move the node fails
				// high, so the whole subtree is trusted to.
				return singularBeta
			} else if ttValue >= beta {
				extension = -2
			}
		} else if givesCheck && depth > 6 {
			extension = 1
		}
		newDepth += extension

		ss.currentMove = m
		ss.movedPiece = movedPiece
		ss.contHist = w.hist.cont.Table(movedPiece, m.To())
		w.doMove(m, givesCheck)

		var value int
		fullDepthSearch := !pvNode || moveCount > 1

		// Late-move reduction.
		if depth >= 2 && moveCount > 1+b2i(rootNode) && (!isCapture || !ss.ttPV) {
			r := reduction(depth, moveCount)
			if ss.ttPV {
				r--
			}
			if cutNode {
				r += 2
			}
			if !improving {
				r++
			}
			if !isCapture {
				histScore := w.hist.main.Get(pos.SideToMove.Other(), m) +
					prev.contHist.Get(movedPiece, m.To())
				r -= clamp(histScore/6000, -2, 2)
			}
			d := clamp(newDepth-r, 1, newDepth)
			value = -w.search(nodeNonPV, -alpha-1, -alpha, d, ply+1, true)
			if value > alpha && d < newDepth {
				value = -w.search(nodeNonPV, -alpha-1, -alpha, newDepth, ply+1, !cutNode)
			}
			fullDepthSearch = false
		}

		if fullDepthSearch {
			value = -w.search(nodeNonPV, -alpha-1, -alpha, newDepth, ply+1, !cutNode)
		}

		// PV re-search with the full window.
		if pvNode && (moveCount == 1 || (value > alpha && (rootNode || value < beta))) {
			value = -w.search(nodePV, -beta, -alpha, newDepth, ply+1, false)
		}

		w.undoMove(m)

		if p.stop.Load() {
			return ValueDraw
		}

		if rootNode {
			rm := w.findRootMove(m)
			if moveCount == 1 || value > alpha {
				rm.Value = value
				rm.SelDepth = w.selDepth
				rm.PV = append(rm.PV[:0], m)
				child := &w.stack[ply+3]
				rm.PV = append(rm.PV, child.pv[:child.pvLen]...)
				if moveCount > 1 && w.id == 0 {
					w.bestMoveChanges++
				}
			} else {
				// Keep the previous iteration's ordering information.
				rm.Value = -ValueInfinite
			}
		}

		if value > bestValue {
			bestValue = value
			if value > alpha {
				bestMove = m
				if pvNode && !rootNode {
					updatePV(ss, &w.stack[ply+3], m)
				}
				if value >= beta {
					break
				}
				alpha = value
			}
		}

		if m != bestMove {
			if isCapture {
				capturesTried.add(m)
			} else {
				quietsTried.add(m)
			}
		}
	}

	if moveCount == 0 {
		if excluded != board.NoMove {
			return alpha
		}
		if inCheck {
			return matedIn(ply)
		}
		return ValueDraw
	}

	if bestMove != board.NoMove {
		w.updateStats(ss, ply, bestMove, bestValue, beta, depth, quietsTried.slice(), capturesTried.slice())
	}

	if excluded == board.NoMove && !(rootNode && w.pvIdx > 0) {
		bound := BoundUpper
		switch {
		case bestValue >= beta:
			bound = BoundLower
		case pvNode && bestMove != board.NoMove:
			bound = BoundExact
		}
		ttWriter.Save(posKey, valueToTT(bestValue, ply), ss.ttPV, bound, depth, bestMove, ss.staticEval)
	}

	return bestValue
}

// qsearch resolves captures (and at the horizon itself, quiet checks)
// until the position is quiet enough to trust the static eval.
func (w *Worker) qsearch(pvNode bool, alpha, beta, depth, ply int) int {
	pos := w.pos
	p := w.pool
	ss := &w.stack[ply+2]
	prev := &w.stack[ply+1]
	prev2 := &w.stack[ply]
	ss.pvLen = 0

	if pvNode && w.selDepth < ply+1 {
		w.selDepth = ply + 1
	}

	if pos.IsDraw(ply) {
		return w.drawValue()
	}
	if ply >= MaxPly {
		if pos.InCheck() {
			return ValueDraw
		}
		return w.evaluate()
	}

	inCheck := pos.InCheck()

	// Two-level TT depth: horizon nodes (with quiet checks) store at
	// depth 0, deeper capture-only nodes at -1.
	ttDepth := -1
	if inCheck || depth >= 0 {
		ttDepth = 0
	}

	posKey := pos.Key()
	ttData, ttWriter := p.tt.Probe(posKey)
	ttValue := ValueNone
	if ttData.Hit {
		ttValue = valueFromTT(ttData.Value, ply)
	}
	ttMove := board.NoMove
	if ttData.Hit {
		ttMove = ttData.Move
	}

	if !pvNode && ttData.Hit && ttData.Depth >= ttDepth && ttValue != ValueNone {
		if (ttValue >= beta && ttData.Bound&BoundLower != 0) ||
			(ttValue < beta && ttData.Bound&BoundUpper != 0) {
			return ttValue
		}
	}

	bestValue := -ValueInfinite
	futilityBase := -ValueInfinite

	if !inCheck {
		if ttData.Hit && ttData.Eval != ValueNone {
			ss.staticEval = ttData.Eval
		} else {
			ss.staticEval = w.evaluate()
		}
		bestValue = ss.staticEval
		if ttData.Hit && ttValue != ValueNone {
			if (ttValue > bestValue && ttData.Bound&BoundLower != 0) ||
				(ttValue < bestValue && ttData.Bound&BoundUpper != 0) {
				bestValue = ttValue
			}
		}
		if bestValue >= beta {
			if !ttData.Hit {
				ttWriter.Save(posKey, valueToTT(bestValue, ply), false, BoundLower,
					ttDepth, board.NoMove, ss.staticEval)
			}
			return bestValue
		}
		if bestValue > alpha {
			alpha = bestValue
		}
		futilityBase = bestValue + 160
	} else {
		ss.staticEval = ValueNone
	}

	var mp MovePicker
	mp.init(pos, ttMove, depth, &w.hist, prev.contHist, prev2.contHist,
		[2]board.Move{}, board.NoMove)

	bestMove := board.NoMove
	moveCount := 0

	for m := mp.Next(false); m != board.NoMove; m = mp.Next(false) {
		if !pos.Legal(m) {
			continue
		}
		moveCount++

		givesCheck := pos.GivesCheck(m)
		isCapture := pos.IsCapture(m)

		if bestValue > -ValueMateInMaxPly && !inCheck {
			// Futility: the capture cannot lift the eval above alpha.
			if !givesCheck && futilityBase <= alpha && isCapture && !m.IsPromotion() {
				victim := board.PieceValue[pos.CapturedType(m)]
				if futilityBase+victim <= alpha {
					if bestValue < futilityBase+victim {
						bestValue = futilityBase + victim
					}
					continue
				}
			}
			if !pos.SeeGe(m, 0) {
				continue
			}
		}

		ss.currentMove = m
		ss.movedPiece = pos.PieceAt(m.From())
		ss.contHist = w.hist.cont.Table(ss.movedPiece, m.To())
		w.doMove(m, givesCheck)
		value := -w.qsearch(pvNode, -beta, -alpha, depth-1, ply+1)
		w.undoMove(m)

		if p.stop.Load() {
			return ValueDraw
		}

		if value > bestValue {
			bestValue = value
			if value > alpha {
				bestMove = m
				if pvNode {
					updatePV(ss, &w.stack[ply+3], m)
				}
				if value >= beta {
					break
				}
				alpha = value
			}
		}
	}

	if inCheck && moveCount == 0 {
		return matedIn(ply)
	}

	bound := BoundUpper
	if bestValue >= beta {
		bound = BoundLower
	}
	ttWriter.Save(posKey, valueToTT(bestValue, ply), pvNode, bound, ttDepth, bestMove, ss.staticEval)

	return bestValue
}

// updateStats rewards the move that refuted or led this node and
// penalises the alternatives that were tried before it.
func (w *Worker) updateStats(ss *stackEntry, ply int, bestMove board.Move,
	bestValue, beta, depth int, quiets, captures []board.Move) {

	pos := w.pos
	us := pos.SideToMove
	prev := &w.stack[ply+1]
	prev2 := &w.stack[ply]
	bonus := statBonus(depth)

	updateCont := func(m board.Move, b int) {
		pc := pos.PieceAt(m.From())
		if prev.movedPiece != board.NoPiece {
			prev.contHist.Update(pc, m.To(), b)
		}
		if prev2.movedPiece != board.NoPiece {
			prev2.contHist.Update(pc, m.To(), b)
		}
	}

	if !pos.IsCapture(bestMove) {
		if bestValue >= beta {
			if ss.killers[0] != bestMove {
				ss.killers[1] = ss.killers[0]
				ss.killers[0] = bestMove
			}
			if prev.movedPiece != board.NoPiece && prev.currentMove != board.NullMove {
				w.hist.counters.Put(prev.movedPiece, prev.currentMove.To(), bestMove)
			}
		}
		w.hist.main.Update(us, bestMove, bonus)
		updateCont(bestMove, bonus)
		for _, q := range quiets {
			w.hist.main.Update(us, q, -bonus)
			updateCont(q, -bonus)
		}
	} else {
		pc := pos.PieceAt(bestMove.From())
		w.hist.captures.Update(pc, bestMove.To(), pos.CapturedType(bestMove), bonus)
	}

	for _, c := range captures {
		pc := pos.PieceAt(c.From())
		w.hist.captures.Update(pc, c.To(), pos.CapturedType(c), -bonus)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// triedMoves is a bounded scratch list of moves searched before the
// best one, kept on the stack to avoid per-node allocation.
type triedMoves struct {
	moves [64]board.Move
	count int
}

func (t *triedMoves) add(m board.Move) {
	if t.count < len(t.moves) {
		t.moves[t.count] = m
		t.count++
	}
}

func (t *triedMoves) slice() []board.Move {
	return t.moves[:t.count]
}
