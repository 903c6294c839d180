package nnue

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gannet/internal/board"
)

// testNetwork builds a network with small deterministic pseudo-random
// weights. Magnitudes are kept low so the int16 accumulator cannot
// saturate with 32 active features.
func testNetwork(seed uint64) *Network {
	n := NewNetwork()
	n.Description = "test weights"

	next := func() int {
		seed = seed*6364136223846793005 + 1442695040888963407
		return int(seed >> 33)
	}
	for i := range n.FeatureTransformer.Biases {
		n.FeatureTransformer.Biases[i] = int16(next()%65 - 32)
	}
	for i := range n.FeatureTransformer.Weights {
		n.FeatureTransformer.Weights[i] = int16(next()%65 - 32)
	}
	for i := range n.FeatureTransformer.PSQTWeights {
		n.FeatureTransformer.PSQTWeights[i] = int32(next()%1025 - 512)
	}
	for _, ls := range n.LayerStacks {
		for _, layer := range []*AffineTransform{&ls.FC0.AffineTransform, ls.FC1, ls.FC2} {
			for i := range layer.Biases {
				layer.Biases[i] = int32(next()%257 - 128)
			}
			for i := range layer.Weights {
				layer.Weights[i] = int8(next()%127 - 63)
			}
		}
	}
	return n
}

func TestSaveLoadRoundTrip(t *testing.T) {
	net := testNetwork(7)

	var buf1 bytes.Buffer
	if err := net.WriteTo(&buf1); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded := NewNetwork()
	if err := loaded.ReadFrom(bytes.NewReader(buf1.Bytes())); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if loaded.Description != "test weights" {
		t.Errorf("description = %q", loaded.Description)
	}

	var buf2 bytes.Buffer
	if err := loaded.WriteTo(&buf2); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		t.Error("serialised forms differ after a load/save cycle")
	}

	pos := board.NewPosition()
	e1 := NewEvaluator(net)
	e2 := NewEvaluator(loaded)
	if v1, v2 := e1.Evaluate(pos), e2.Evaluate(pos); v1 != v2 {
		t.Errorf("evaluations differ after round trip: %d vs %d", v1, v2)
	}
}

func TestLoadRejectsBadHeader(t *testing.T) {
	net := testNetwork(7)
	var buf bytes.Buffer
	if err := net.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	// Corrupt the version magic.
	data := append([]byte(nil), buf.Bytes()...)
	data[0] ^= 0xFF
	if err := NewNetwork().ReadFrom(bytes.NewReader(data)); !errors.Is(err, ErrBadFormat) {
		t.Errorf("bad version: err = %v, want ErrBadFormat", err)
	}

	// Corrupt the architecture hash.
	data = append([]byte(nil), buf.Bytes()...)
	data[4] ^= 0xFF
	if err := NewNetwork().ReadFrom(bytes.NewReader(data)); !errors.Is(err, ErrBadFormat) {
		t.Errorf("bad hash: err = %v, want ErrBadFormat", err)
	}

	// Truncated file.
	if err := NewNetwork().ReadFrom(bytes.NewReader(buf.Bytes()[:100])); !errors.Is(err, ErrBadFormat) {
		t.Errorf("truncated: err = %v, want ErrBadFormat", err)
	}
}

// Incremental updates across any legal line must reproduce the
// from-scratch evaluation bit for bit.
func TestIncrementalMatchesScratch(t *testing.T) {
	net := testNetwork(99)

	lines := [][]string{
		// Castling and piece trades.
		{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "g8f6", "e1g1", "f6e4", "d2d4", "e4d6", "b5c6", "d7c6", "d4e5", "d6f5"},
		// Capture promotion.
		{"e2e4", "d7d5", "e4d5", "c7c6", "d5c6", "d8d7", "c6b7", "d7e6", "b7a8q", "e6e4", "d1e2", "e4g6"},
		// En passant.
		{"e2e4", "g8f6", "e4e5", "d7d5", "e5d6"},
		// King walks forcing cache refreshes.
		{"e2e4", "e7e5", "e1e2", "e8e7", "e2e3", "e7e6", "d2d4", "d7d6"},
	}

	for li, line := range lines {
		pos := board.NewPosition()
		inc := NewEvaluator(net)

		for mi, uci := range line {
			m, err := board.ParseMove(uci, pos)
			if err != nil {
				t.Fatalf("line %d move %q: %v", li, uci, err)
			}
			pos.DoMove(m)
			inc.DoMove(pos)

			got := inc.Evaluate(pos)

			scratch, err := board.ParseFEN(pos.FEN())
			if err != nil {
				t.Fatalf("line %d: %v", li, err)
			}
			want := NewEvaluator(net).Evaluate(scratch)
			if got != want {
				t.Fatalf("line %d after move %d (%s): incremental %d, scratch %d", li, mi, uci, got, want)
			}
		}
	}
}

// Null moves change no features; the evaluation of the same board
// must be unchanged up to the side-to-move swap.
func TestNullMoveKeepsAccumulator(t *testing.T) {
	net := testNetwork(5)
	pos := board.NewPosition()
	ev := NewEvaluator(net)
	_ = ev.Evaluate(pos)

	pos.DoNullMove()
	ev.DoNullMove()
	afterNull := ev.Evaluate(pos)

	scratch, _ := board.ParseFEN(pos.FEN())
	want := NewEvaluator(net).Evaluate(scratch)
	if afterNull != want {
		t.Errorf("after null move: incremental %d, scratch %d", afterNull, want)
	}

	pos.UndoNullMove()
	ev.UndoMove()
}

// mirrorFEN flips colors and ranks: the resulting position is the
// exact color-swapped mirror with the other side to move.
func mirrorFEN(fen string) string {
	parts := strings.Fields(fen)

	ranks := strings.Split(parts[0], "/")
	flipped := make([]string, 8)
	for i, rank := range ranks {
		var sb strings.Builder
		for _, ch := range rank {
			switch {
			case ch >= 'a' && ch <= 'z':
				sb.WriteRune(ch - 'a' + 'A')
			case ch >= 'A' && ch <= 'Z':
				sb.WriteRune(ch - 'A' + 'a')
			default:
				sb.WriteRune(ch)
			}
		}
		flipped[7-i] = sb.String()
	}

	stm := "w"
	if parts[1] == "w" {
		stm = "b"
	}

	var castling strings.Builder
	for _, ch := range parts[2] {
		switch {
		case ch >= 'a' && ch <= 'z':
			castling.WriteRune(ch - 'a' + 'A')
		case ch >= 'A' && ch <= 'Z':
			castling.WriteRune(ch - 'A' + 'a')
		default:
			castling.WriteRune(ch)
		}
	}
	// FEN lists white's rights first.
	cr := castling.String()
	if cr != "-" {
		upper, lower := "", ""
		for _, ch := range cr {
			if ch >= 'A' && ch <= 'Z' {
				upper += string(ch)
			} else {
				lower += string(ch)
			}
		}
		cr = upper + lower
	}

	ep := parts[3]
	if ep != "-" {
		ep = string(ep[0]) + string('1'+'8'-ep[1])
	}

	return strings.Join(flipped, "/") + " " + stm + " " + cr + " " + ep + " " + parts[4] + " " + parts[5]
}

// The feature set is symmetric in color, so the side-to-move relative
// score of a position equals that of its color-flipped mirror.
func TestColorSymmetry(t *testing.T) {
	net := testNetwork(3)

	fens := []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
	}
	for _, fen := range fens {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		mir, err := board.ParseFEN(mirrorFEN(fen))
		if err != nil {
			t.Fatalf("ParseFEN(mirror %q): %v", fen, err)
		}

		v1 := NewEvaluator(net).Evaluate(pos)
		v2 := NewEvaluator(net).Evaluate(mir)
		if v1 != v2 {
			t.Errorf("%s: score %d, mirror %d", fen, v1, v2)
		}
	}
}

func TestMakeIndexBounds(t *testing.T) {
	for _, persp := range []board.Color{board.White, board.Black} {
		for ksq := board.A1; ksq <= board.H8; ksq++ {
			for sq := board.A1; sq <= board.H8; sq++ {
				for pc := board.WhitePawn; pc <= board.BlackKing; pc++ {
					idx := MakeIndex(persp, sq, pc, ksq)
					if idx < 0 || idx >= FeatureDimensions {
						t.Fatalf("MakeIndex(%v, %v, %v, %v) = %d out of range", persp, sq, pc, ksq, idx)
					}
				}
			}
		}
	}
}

func BenchmarkEvaluate(b *testing.B) {
	net := testNetwork(11)
	pos := board.NewPosition()
	ev := NewEvaluator(net)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ev.stack.Current().Computed[0] = false
		ev.stack.Current().Computed[1] = false
		ev.Evaluate(pos)
	}
}

// The scratch-buffer constants spell out the rounding CeilToMultiple
// performs, because array lengths must be constant expressions; keep
// the two in sync.
func TestScratchBufferPadding(t *testing.T) {
	cases := []struct {
		got, n int
	}{
		{fc0OutPadded, fc0Outputs},
		{fc0PairedPadded, fc0Outputs * 2},
		{fc1OutPadded, fc1Outputs},
		{fc2OutPadded, 1},
	}
	for _, c := range cases {
		if want := CeilToMultiple(c.n, MaxSimdWidth); c.got != want {
			t.Errorf("padded width for %d = %d, want %d", c.n, c.got, want)
		}
	}
}
