package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gannet/internal/board"
	"gannet/internal/nnue"
	"gannet/internal/tablebase"
)

// SearchInfo is one iteration report, consumed by the protocol layer.
type SearchInfo struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Value    int
	Nodes    uint64
	NPS      uint64
	TimeMs   int64
	HashFull int
	TBHits   uint64
	PV       []board.Move
}

// Pool owns the search workers. Worker 0 is the main worker; all
// workers share the transposition table and the stop/ponder flags,
// everything else is per-worker.
type Pool struct {
	tt      *TranspositionTable
	tb      tablebase.Prober
	workers []*Worker

	limits  Limits
	tm      TimeManager
	multiPV int

	stop            atomic.Bool
	ponder          atomic.Bool
	stopOnPonderhit atomic.Bool
	tbHits          atomic.Uint64

	lastBestMove board.Move
	stability    int

	OnInfo     func(SearchInfo)
	OnBestMove func(best, ponder board.Move)

	mu   sync.Mutex
	done chan struct{}
}

// NewPool creates a pool of the given size over a shared table.
func NewPool(tt *TranspositionTable, threads int) *Pool {
	p := &Pool{tt: tt}
	p.SetThreads(threads)
	done := make(chan struct{})
	close(done)
	p.done = done
	return p
}

// SetThreads resizes the pool. Worker histories are lost.
func (p *Pool) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	var net *nnue.Network
	if len(p.workers) > 0 && p.workers[0].eval != nil {
		net = p.workers[0].eval.Network()
	}
	p.workers = make([]*Worker, n)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
		p.workers[i].setNetwork(net)
	}
}

// SetNetwork distributes a freshly loaded network to every worker.
func (p *Pool) SetNetwork(net *nnue.Network) {
	for _, w := range p.workers {
		w.setNetwork(net)
	}
}

// SetTablebase installs the endgame prober consulted by the search.
func (p *Pool) SetTablebase(tb tablebase.Prober) { p.tb = tb }

// Clear resets worker histories and evaluator caches; ucinewgame.
func (p *Pool) Clear() {
	for _, w := range p.workers {
		w.hist.clear()
		if w.eval != nil {
			w.eval.NewGame()
		}
	}
	p.lastBestMove = board.NoMove
	p.stability = 0
}

// Nodes sums the node counters of all workers.
func (p *Pool) Nodes() uint64 {
	var n uint64
	for _, w := range p.workers {
		n += w.nodes.Load()
	}
	return n
}

// TBHits returns the tablebase hit count of the current search.
func (p *Pool) TBHits() uint64 { return p.tbHits.Load() }

func (p *Pool) elapsed() int64 {
	return p.tm.Elapsed().Milliseconds()
}

// Searching reports whether a search is in flight.
func (p *Pool) Searching() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current search has fully terminated.
func (p *Pool) Wait() { <-p.done }

// StopSearch asserts the stop flag; workers unwind within a bounded
// number of nodes.
func (p *Pool) StopSearch() { p.stop.Store(true) }

// PonderHit converts a ponder search into a normally timed one. If
// the soft budget already expired while pondering, stop now.
func (p *Pool) PonderHit() {
	p.ponder.Store(false)
	if p.stopOnPonderhit.Load() {
		p.stop.Store(true)
	}
}

// rootMoveList builds the legal root moves, restricted by searchmoves.
func rootMoveList(pos *board.Position, restrict []board.Move) []board.Move {
	var ml board.MoveList
	pos.GenerateMoves(board.GenLegal, &ml)
	moves := make([]board.Move, 0, ml.Len())
	for _, m := range ml.Slice() {
		if len(restrict) > 0 {
			found := false
			for _, r := range restrict {
				if r == m {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		moves = append(moves, m)
	}
	return moves
}

// filterTablebaseMoves keeps only the root moves sharing the best
// tablebase verdict when a prober covers the position. Restricted and
// mate searches keep the full list.
func (p *Pool) filterTablebaseMoves(pos *board.Position, moves []board.Move, limits *Limits) []board.Move {
	if p.tb == nil || len(limits.SearchMoves) > 0 || limits.Mate > 0 ||
		pos.TotalPieceCount() > p.tb.MaxPieces() {
		return moves
	}
	ranked, ok := p.tb.ProbeRoot(pos)
	if !ok || len(ranked) == 0 {
		return moves
	}
	p.tbHits.Add(1)
	best := ranked[0].WDL
	kept := moves[:0]
	for _, m := range moves {
		for _, rm := range ranked {
			if rm.Move == m && rm.WDL == best {
				kept = append(kept, m)
				break
			}
		}
	}
	if len(kept) == 0 {
		return moves
	}
	return kept
}

// StartSearch launches the workers and returns immediately. The best
// move is delivered through OnBestMove once all workers have joined.
func (p *Pool) StartSearch(pos *board.Position, limits Limits, multiPV int, overhead time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.limits = limits
	p.multiPV = max(multiPV, 1)
	p.stop.Store(false)
	p.ponder.Store(limits.Ponder)
	p.stopOnPonderhit.Store(false)
	p.tbHits.Store(0)
	p.lastBestMove = board.NoMove
	p.stability = 0

	p.tm.Init(&limits, pos.SideToMove, pos.GamePly, overhead)
	p.tt.NewSearch()

	rootMoves := rootMoveList(pos, limits.SearchMoves)
	rootMoves = p.filterTablebaseMoves(pos, rootMoves, &limits)
	for _, w := range p.workers {
		w.prepare(pos, rootMoves)
	}

	p.done = make(chan struct{})
	go p.run(rootMoves)
}

func (p *Pool) run(rootMoves []board.Move) {
	defer close(p.done)

	if len(rootMoves) == 0 {
		// Mate or stalemate at the root; there is nothing to search.
		if p.OnBestMove != nil {
			p.OnBestMove(board.NoMove, board.NoMove)
		}
		return
	}

	var g errgroup.Group
	for _, w := range p.workers[1:] {
		w := w
		g.Go(func() error {
			w.iterate()
			return nil
		})
	}
	p.workers[0].iterate()

	// In infinite or ponder mode the protocol forbids printing a best
	// move before an explicit stop or ponderhit arrives.
	for (p.limits.Infinite || p.ponder.Load()) && !p.stop.Load() {
		time.Sleep(time.Millisecond)
	}
	p.stop.Store(true)
	_ = g.Wait() // workers never return errors

	best, ponder := p.voteBestMove()
	if p.OnBestMove != nil {
		p.OnBestMove(best, ponder)
	}
}

// checkLimits is polled by the main worker every 1024 nodes. While
// pondering the clock is ignored entirely.
func (p *Pool) checkLimits() {
	if p.ponder.Load() || p.stop.Load() {
		return
	}
	if p.limits.Nodes > 0 && p.Nodes() >= p.limits.Nodes {
		p.stop.Store(true)
		return
	}
	if p.tm.ShouldStop() {
		p.stop.Store(true)
	}
}

// reportIteration publishes the MultiPV lines of the main worker.
func (p *Pool) reportIteration(w *Worker) {
	if p.OnInfo == nil {
		return
	}
	ms := p.elapsed()
	nodes := p.Nodes()
	for i := 0; i < w.multiPV; i++ {
		rm := &w.rootMoves[i]
		value := rm.Value
		if value == -ValueInfinite {
			value = rm.PrevValue
		}
		p.OnInfo(SearchInfo{
			Depth:    w.rootDepth,
			SelDepth: rm.SelDepth,
			MultiPV:  i + 1,
			Value:    value,
			Nodes:    nodes,
			NPS:      nodes * 1000 / uint64(ms+1),
			TimeMs:   ms,
			HashFull: p.tt.HashFull(),
			TBHits:   p.tbHits.Load(),
			PV:       rm.PV,
		})
	}
}

// afterIteration runs the soft time management on the main worker
// after each completed depth.
func (p *Pool) afterIteration(w *Worker) {
	if p.stop.Load() || len(w.rootMoves) == 0 {
		return
	}
	best := &w.rootMoves[0]

	if p.limits.Mate > 0 && best.Value >= ValueMate-2*p.limits.Mate {
		p.stop.Store(true)
		return
	}

	if !p.tm.active {
		return
	}
	if best.Move == p.lastBestMove {
		p.stability++
	} else {
		p.stability = 0
		p.lastBestMove = best.Move
	}

	// Stable choices shrink the budget; recent flips and a dropping
	// score grow it.
	scale := 1.1 - 0.05*float64(min(p.stability, 10)) + 0.25*w.bestMoveChanges
	if best.Value < best.PrevValue {
		scale += 0.15
	}
	if p.tm.PastOptimum(scale) {
		if p.ponder.Load() {
			p.stopOnPonderhit.Store(true)
		} else {
			p.stop.Store(true)
		}
	}
}

// voteBestMove picks the final move by a depth- and score-weighted
// vote over every worker's best root move, then returns the chosen
// worker's move and ponder reply.
func (p *Pool) voteBestMove() (best, ponder board.Move) {
	type candidate struct {
		rm    *RootMove
		depth int
	}
	var cands []candidate
	minValue := ValueInfinite
	for _, w := range p.workers {
		rm := w.bestRootMove()
		if rm == nil || w.completedDepth == 0 || len(rm.PV) == 0 {
			continue
		}
		cands = append(cands, candidate{rm, w.completedDepth})
		if rm.Value < minValue {
			minValue = rm.Value
		}
	}
	if len(cands) == 0 {
		// Nothing completed depth 1; fall back to the main worker's
		// current ordering.
		rm := p.workers[0].bestRootMove()
		if rm == nil {
			return board.NoMove, board.NoMove
		}
		return rm.Move, board.NoMove
	}

	votes := make(map[board.Move]int64)
	for _, c := range cands {
		votes[c.rm.Move] += int64(c.rm.Value-minValue+14) * int64(c.depth)
	}

	chosen := cands[0]
	for _, c := range cands[1:] {
		// A worker proving a mate overrides the vote.
		if c.rm.Value >= ValueMateInMaxPly && c.rm.Value > chosen.rm.Value {
			chosen = c
			continue
		}
		if chosen.rm.Value < ValueMateInMaxPly &&
			votes[c.rm.Move] > votes[chosen.rm.Move] {
			chosen = c
		}
	}

	best = chosen.rm.Move
	if len(chosen.rm.PV) > 1 {
		ponder = chosen.rm.PV[1]
	}
	return best, ponder
}
