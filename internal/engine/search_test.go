package engine

import (
	"testing"
	"time"

	"gannet/internal/board"
	"gannet/internal/tablebase"
)

// testEngine builds a small single-threaded engine suitable for unit
// searches.
func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.SetOption("Hash", "16"); err != nil {
		t.Fatal(err)
	}
	return e
}

// searchSync runs one search to completion and returns the best move,
// ponder move and the infos that were reported.
func searchSync(t *testing.T, e *Engine, fen string, moves []string, limits Limits) (board.Move, board.Move, []SearchInfo) {
	t.Helper()
	if err := e.SetPosition(fen, moves); err != nil {
		t.Fatalf("SetPosition(%q): %v", fen, err)
	}

	var infos []SearchInfo
	e.OnInfo = func(info SearchInfo) { infos = append(infos, info) }

	type result struct{ best, ponder board.Move }
	ch := make(chan result, 1)
	e.OnBestMove = func(best, ponder board.Move) { ch <- result{best, ponder} }

	e.Go(limits)
	select {
	case r := <-ch:
		e.Wait()
		return r.best, r.ponder, infos
	case <-time.After(2 * time.Minute):
		t.Fatal("search did not terminate")
		return board.NoMove, board.NoMove, nil
	}
}

func isLegal(pos *board.Position, m board.Move) bool {
	var ml board.MoveList
	pos.GenerateMoves(board.GenLegal, &ml)
	return ml.Contains(m)
}

func TestSearchReturnsLegalMove(t *testing.T) {
	e := testEngine(t)
	best, _, _ := searchSync(t, e, "", nil, Limits{Depth: 1})
	if best == board.NoMove {
		t.Fatal("no best move from the starting position")
	}
	if !isLegal(board.NewPosition(), best) {
		t.Fatalf("best move %v is not legal", best)
	}
}

// Two rooks ladder-mate the bare king in three moves. The reported
// score must be a mate score within five plies of the full mate value.
func TestSearchFindsMateInThree(t *testing.T) {
	e := testEngine(t)
	fen := "8/8/7k/R7/1R6/8/8/6K1 w - - 0 1"
	best, _, infos := searchSync(t, e, fen, nil, Limits{Depth: 8})

	if len(infos) == 0 {
		t.Fatal("no info reported")
	}
	v := infos[len(infos)-1].Value
	if v < ValueMate-5 {
		t.Errorf("score = %d, want a mate score >= %d", v, ValueMate-5)
	}
	pos, _ := board.ParseFEN(fen)
	if !isLegal(pos, best) {
		t.Errorf("best move %v is not legal", best)
	}
}

// Fool's mate: black to move delivers mate in one.
func TestSearchFindsMateInOne(t *testing.T) {
	e := testEngine(t)
	fen := "rnb1kbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 3"
	best, _, infos := searchSync(t, e, fen, nil, Limits{Depth: 4})

	pos, _ := board.ParseFEN(fen)
	want, err := board.ParseMove("d8h4", pos)
	if err != nil {
		t.Fatal(err)
	}
	if best != want {
		t.Errorf("best = %v, want %v", best, want)
	}
	if v := infos[len(infos)-1].Value; v != ValueMate-1 {
		t.Errorf("score = %d, want mate in one = %d", v, ValueMate-1)
	}
}

func TestSearchStalemateGivesNoMove(t *testing.T) {
	e := testEngine(t)
	best, ponder, _ := searchSync(t, e, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", nil, Limits{Depth: 4})
	if best != board.NoMove || ponder != board.NoMove {
		t.Errorf("bestmove = %v ponder %v, want none: stalemate", best, ponder)
	}
}

func TestSearchNodeLimit(t *testing.T) {
	e := testEngine(t)
	searchSync(t, e, "", nil, Limits{Nodes: 4096})
	// The limit is polled every 1024 nodes, so allow a full poll
	// interval of overshoot.
	if n := e.Nodes(); n > 4096+2048 {
		t.Errorf("searched %d nodes under a 4096 node budget", n)
	}
}

func TestSearchMovesRestriction(t *testing.T) {
	e := testEngine(t)
	pos := board.NewPosition()
	only, err := board.ParseMove("a2a3", pos)
	if err != nil {
		t.Fatal(err)
	}
	best, _, _ := searchSync(t, e, "", nil, Limits{Depth: 4, SearchMoves: []board.Move{only}})
	if best != only {
		t.Errorf("best = %v, want the only searchable move %v", best, only)
	}
}

func TestMultiPVReportsDistinctLines(t *testing.T) {
	e := testEngine(t)
	if err := e.SetOption("MultiPV", "3"); err != nil {
		t.Fatal(err)
	}
	_, _, infos := searchSync(t, e, "", nil, Limits{Depth: 5})

	first := make(map[int]board.Move)
	for _, info := range infos {
		if info.Depth == 5 && len(info.PV) > 0 {
			first[info.MultiPV] = info.PV[0]
		}
	}
	if len(first) != 3 {
		t.Fatalf("got lines for multipv set %v, want 1..3", first)
	}
	if first[1] == first[2] || first[1] == first[3] || first[2] == first[3] {
		t.Errorf("multipv lines share a root move: %v", first)
	}
}

func TestSearchWithThreads(t *testing.T) {
	e := testEngine(t)
	if err := e.SetOption("Threads", "4"); err != nil {
		t.Fatal(err)
	}
	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	best, _, _ := searchSync(t, e, fen, nil, Limits{Depth: 9})
	pos, _ := board.ParseFEN(fen)
	if !isLegal(pos, best) {
		t.Errorf("best move %v is not legal", best)
	}
}

// With one thread, a fixed depth and a cleared table between runs the
// search is deterministic.
func TestBenchIsDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("bench searches take a while")
	}
	e := testEngine(t)
	n1, _ := e.Bench(5)
	n2, _ := e.Bench(5)
	if n1 == 0 {
		t.Fatal("bench searched no nodes")
	}
	if n1 != n2 {
		t.Errorf("bench node counts differ between runs: %d vs %d", n1, n2)
	}
}

func TestInfiniteSearchWaitsForStop(t *testing.T) {
	e := testEngine(t)
	if err := e.SetPosition("", nil); err != nil {
		t.Fatal(err)
	}
	ch := make(chan board.Move, 1)
	e.OnInfo = nil
	e.OnBestMove = func(best, _ board.Move) { ch <- best }

	e.Go(Limits{Infinite: true, Depth: 2})
	select {
	case <-ch:
		t.Fatal("bestmove printed before stop in an infinite search")
	case <-time.After(200 * time.Millisecond):
	}
	e.Stop()
	select {
	case best := <-ch:
		if best == board.NoMove {
			t.Error("no best move after stop")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop")
	}
	e.Wait()
}

// Entries before the root have no previous move: prepare must mark
// them as such, or root-adjacent plies read counter moves under a
// bogus piece/square key and write history into the zero sentinel.
func TestPrepareMarksPreRootEntries(t *testing.T) {
	e := testEngine(t)
	w := e.pool.workers[0]
	w.prepare(board.NewPosition(), nil)
	for i := range w.stack {
		if got := w.stack[i].movedPiece; got != board.NoPiece {
			t.Fatalf("stack[%d].movedPiece = %v, want NoPiece", i, got)
		}
	}
}

// The sentinel continuation table must stay zero through a search.
func TestSearchLeavesSentinelHistoryUntouched(t *testing.T) {
	e := testEngine(t)
	searchSync(t, e, "", nil, Limits{Depth: 4})
	noCont := &e.pool.workers[0].hist.noCont
	for pc := range noCont {
		for sq, v := range noCont[pc] {
			if v != 0 {
				t.Fatalf("sentinel history written at piece %d square %d: %d", pc, sq, v)
			}
		}
	}
}

// stubProber ranks the root moves of one covered position; interior
// probes report no coverage, like a DTZ-only set.
type stubProber struct {
	key   uint64
	moves []tablebase.RootMove
}

func (s *stubProber) ProbeWDL(*board.Position) (tablebase.WDL, bool) { return 0, false }
func (s *stubProber) MaxPieces() int                                 { return 3 }

func (s *stubProber) ProbeRoot(pos *board.Position) ([]tablebase.RootMove, bool) {
	if pos.Key() != s.key {
		return nil, false
	}
	return s.moves, true
}

func TestTablebaseFiltersRootMoves(t *testing.T) {
	e := testEngine(t)
	fen := "4k3/8/8/8/8/8/1Q6/4K3 w - - 0 1"
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	want, err := board.ParseMove("b2b5", pos)
	if err != nil {
		t.Fatal(err)
	}
	e.SetTablebase(&stubProber{
		key:   pos.Key(),
		moves: []tablebase.RootMove{{Move: want, WDL: tablebase.WDLWin}},
	})

	best, _, _ := searchSync(t, e, fen, nil, Limits{Depth: 4})
	if best != want {
		t.Errorf("best = %v, want the tablebase move %v", best, want)
	}
}
