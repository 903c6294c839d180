package board

import "testing"

// Each case checks the threshold right at the exchange value: SeeGe
// must hold at the value itself and fail one centipawn above it.
func TestSeeGe(t *testing.T) {
	tests := []struct {
		fen   string
		uci   string
		value int
	}{
		// Rook takes an undefended pawn.
		{"1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5", 100},
		// Knight takes a pawn defended by a knight; the follow-up
		// recapture costs more than the pawn gained.
		{"1k1r3q/1ppn3p/p4b2/4p3/8/P2N2P1/1PP1R1BP/2K1Q3 w - - 0 1", "d3e5", -220},
		// Queen grabs a pawn guarded by another pawn.
		{"7k/8/4p3/3p4/8/8/3Q4/7K w - - 0 1", "d2d5", -800},
		// Equal trade, rook for rook.
		{"3r3k/8/8/8/8/8/8/3R3K w - - 0 1", "d1d8", 500},
		// Quiet move onto a square guarded only by a king.
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", "a1a4", 0},
		// Quiet rook move onto a pawn-guarded square loses the rook.
		{"4k3/8/8/2p5/8/8/8/R3K3 w - - 0 1", "a1b4", -500},
	}

	for _, tc := range tests {
		p := mustParse(t, tc.fen)
		m := mustMove(t, p, tc.uci)
		if !p.SeeGe(m, tc.value) {
			t.Errorf("%s %s: SeeGe(%d) = false", tc.fen, tc.uci, tc.value)
		}
		if p.SeeGe(m, tc.value+1) {
			t.Errorf("%s %s: SeeGe(%d) = true", tc.fen, tc.uci, tc.value+1)
		}
	}
}

// A pinned defender cannot recapture, so the exchange is better than
// the plain attacker count suggests.
func TestSeeGePinnedDefender(t *testing.T) {
	// The black knight on d7 is pinned against its king by the rook on
	// d1, so after Nxe5 it cannot recapture.
	p := mustParse(t, "3k4/3n4/8/4p3/8/3N4/8/3RK3 w - - 0 1")
	m := mustMove(t, p, "d3e5")
	if !p.SeeGe(m, 100) {
		t.Error("pinned knight counted as a defender")
	}
}

// X-ray attackers behind the first capturer must join the exchange.
func TestSeeGeXRay(t *testing.T) {
	// Doubled rooks against a defended pawn: the back rook recaptures
	// through the square the front rook vacated, so taking the pawn
	// wins it cleanly.
	p := mustParse(t, "k3r3/8/8/4p3/8/4R3/8/4R2K w - - 0 1")
	m := mustMove(t, p, "e3e5")
	if !p.SeeGe(m, 100) {
		t.Error("x-ray rook not counted, exchange should win the pawn")
	}
	if p.SeeGe(m, 101) {
		t.Error("exchange overvalued")
	}
}

func TestSeeGeSpecialMoves(t *testing.T) {
	p := mustParse(t, "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8")
	promo := mustMove(t, p, "d7c8q")
	if !p.SeeGe(promo, 0) {
		t.Error("promotions break even at threshold 0")
	}
	if p.SeeGe(promo, 1) {
		t.Error("promotions must fail positive thresholds")
	}

	ep := mustParse(t, "8/8/8/8/k2Pp3/8/8/4K3 b - d3 0 1")
	m := mustMove(t, ep, "e4d3")
	if !ep.SeeGe(m, 0) || ep.SeeGe(m, 1) {
		t.Error("en passant treated as breaking even")
	}
}
