package engine

import "time"

// benchPositions is a fixed set of openings, middlegames and endgames
// used by the bench command. Keeping the list stable makes the total
// node count comparable across runs and builds.
var benchPositions = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
	"r1bqk2r/ppp2ppp/2np1n2/2b1p3/2B1P3/2NP1N2/PPP2PPP/R1BQK2R w KQkq - 0 6",
	"rnbq1rk1/ppp1ppbp/3p1np1/8/2PPP3/2N2N2/PP3PPP/R1BQKB1R w KQ - 0 6",
	"r2q1rk1/pp2ppbp/2np1np1/8/3NP3/1BN1B3/PPP2PPP/R2Q1RK1 w - - 4 10",
	"r1bq1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N1PN2/PP2BPPP/R1BQ1RK1 w - - 6 8",
	"2rq1rk1/pb1nbppp/1p2pn2/2p5/2PP4/1PN2NP1/PB2PPBP/R2Q1RK1 w - c6 0 11",
	"4rrk1/pp1n1pp1/q5p1/P1pP4/2n5/7P/1P3PPK/R1BQ1RN1 w - - 3 22",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP2PPP/R2Q1RK1 w - - 0 10",
	"8/2p2k2/3p4/KP5r/1R3p2/8/4P1P1/8 w - - 0 1",
	"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
	"8/8/8/8/8/6k1/6p1/6K1 w - - 0 1",
	"5k2/8/8/8/8/8/8/4K2R w K - 0 1",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/Pk6/8/8/8/8/6Kp/8 w - - 0 1",
}

// Bench searches every bench position to the given depth and returns
// the summed node count and wall time. Callbacks are muted for the
// duration; the caller prints the totals.
func (e *Engine) Bench(depth int) (nodes uint64, elapsed time.Duration) {
	if depth <= 0 {
		depth = 13
	}
	savedInfo, savedBest := e.OnInfo, e.OnBestMove
	savedPos, savedBook := e.pos, e.OwnBook.Value
	e.OnInfo, e.OnBestMove = nil, nil
	e.OwnBook.Value = false
	defer func() {
		e.OnInfo, e.OnBestMove = savedInfo, savedBest
		e.pos, e.OwnBook.Value = savedPos, savedBook
	}()

	start := time.Now()
	for _, fen := range benchPositions {
		e.NewGame()
		if err := e.SetPosition(fen, nil); err != nil {
			continue
		}
		e.Go(Limits{Depth: depth})
		e.Wait()
		nodes += e.pool.Nodes()
	}
	return nodes, time.Since(start)
}
