package board

import "testing"

// Perft node counts are the standard way to verify move generation:
// any bug in castling, en passant, promotions or pin handling shows up
// as a wrong count within a few plies.
func TestPerftStartingPosition(t *testing.T) {
	pos := NewPosition()

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
		{4, 197281},
		{5, 4865609},
	}

	for _, tc := range tests {
		if tc.depth >= 5 && testing.Short() {
			continue
		}
		got := Perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// Kiwipete exercises castling through attacked squares, promotions and
// discovered checks all at once.
func TestPerftKiwipete(t *testing.T) {
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 48},
		{2, 2039},
		{3, 97862},
		{4, 4085603},
	}

	for _, tc := range tests {
		if tc.depth >= 4 && testing.Short() {
			continue
		}
		got := Perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// Position 3 is dense with en passant and pin edge cases.
func TestPerftPosition3(t *testing.T) {
	pos, err := ParseFEN("8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 14},
		{2, 191},
		{3, 2812},
		{4, 43238},
		{5, 674624},
	}

	for _, tc := range tests {
		if tc.depth >= 5 && testing.Short() {
			continue
		}
		got := Perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// Position 4 stresses promotions, including underpromotions with check.
func TestPerftPosition4(t *testing.T) {
	pos, err := ParseFEN("r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 6},
		{2, 264},
		{3, 9467},
		{4, 422333},
	}

	for _, tc := range tests {
		if tc.depth >= 4 && testing.Short() {
			continue
		}
		got := Perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

func TestPerftPosition5(t *testing.T) {
	pos, err := ParseFEN("rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 44},
		{2, 1486},
		{3, 62379},
		{4, 2103487},
	}

	for _, tc := range tests {
		if tc.depth >= 4 && testing.Short() {
			continue
		}
		got := Perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// A pawn pinned horizontally against its king may not capture en
// passant even though the capture looks legal square-by-square.
func TestEnPassantHorizontalPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	var ml MoveList
	pos.GenerateMoves(GenLegal, &ml)
	for i := 0; i < ml.Len(); i++ {
		if ml.Get(i).IsEnPassant() {
			t.Errorf("en passant %v should be illegal: king exposed to the rook", ml.Get(i))
		}
	}

	if got := Perft(pos, 1); got != 6 {
		t.Errorf("perft(1) = %d, want 6", got)
	}
	if got := Perft(pos, 2); got != 94 {
		t.Errorf("perft(2) = %d, want 94", got)
	}
}

// Chess960 castling is encoded as king-takes-rook, so positions where
// the rook starts next to the king or the king does not move at all
// must still count correctly.
func TestPerftChess960(t *testing.T) {
	tests := []struct {
		fen      string
		depth    int
		expected uint64
	}{
		{"bqnb1rkr/pp3ppp/3ppn2/2p5/5P2/P2P4/NPP1P1PP/BQ1BNRKR w HFhf - 2 9", 3, 12189},
		{"2nnrbkr/p1qppppp/8/1ppb4/6PP/3PP3/PPP2P2/BQNNRBKR w HEhe - 1 9", 3, 18002},
		{"b1q1rrkb/pppppppp/3nn3/8/P7/1PPP4/4PPPP/BQNNRKRB w GE - 1 9", 3, 9548},
	}

	for _, tc := range tests {
		pos := &Position{}
		if err := pos.Set(tc.fen, true); err != nil {
			t.Fatalf("Set(%q): %v", tc.fen, err)
		}
		got := Perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("%s: perft(%d) = %d, want %d", tc.fen, tc.depth, got, tc.expected)
		}
	}
}

func TestPerftDivideSumsToPerft(t *testing.T) {
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	entries := PerftDivide(pos, 3)
	var sum uint64
	for _, e := range entries {
		sum += e.Nodes
	}
	if want := Perft(pos, 3); sum != want {
		t.Errorf("divide sum = %d, want %d", sum, want)
	}
	if len(entries) != 48 {
		t.Errorf("got %d root moves, want 48", len(entries))
	}
}

func BenchmarkPerftStartpos(b *testing.B) {
	pos := NewPosition()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Perft(pos, 4)
	}
}
