package engine

import (
	"testing"

	"gannet/internal/board"
)

func TestOptionRegistry(t *testing.T) {
	e := NewEngine()
	names := map[string]bool{}
	for _, o := range e.Options() {
		names[o.Name()] = true
	}
	for _, want := range []string{
		"Hash", "Threads", "MultiPV", "Ponder", "MoveOverhead",
		"UCI_Chess960", "OwnBook", "BookFile", "EvalFile",
	} {
		if !names[want] {
			t.Errorf("option %q not registered", want)
		}
	}
}

func TestSetOptionHashResizesTable(t *testing.T) {
	e := NewEngine()
	if err := e.SetOption("Hash", "4"); err != nil {
		t.Fatal(err)
	}
	if got := e.tt.ClusterCount(); got != uint64(4)<<20/32 {
		t.Errorf("ClusterCount = %d after Hash=4", got)
	}
	// Values clamp to the spin range instead of failing.
	if err := e.SetOption("Hash", "100000"); err != nil {
		t.Fatal(err)
	}
	if e.Hash.Value != e.Hash.Max {
		t.Errorf("Hash.Value = %d, want clamped to %d", e.Hash.Value, e.Hash.Max)
	}
}

func TestSetOptionCaseInsensitive(t *testing.T) {
	e := NewEngine()
	if err := e.SetOption("multipv", "8"); err != nil {
		t.Fatal(err)
	}
	if e.MultiPV.Value != 8 {
		t.Errorf("MultiPV.Value = %d, want 8", e.MultiPV.Value)
	}
}

func TestSetOptionUnknown(t *testing.T) {
	e := NewEngine()
	if err := e.SetOption("NoSuchOption", "1"); err == nil {
		t.Error("unknown option accepted")
	}
}

func TestSetPositionAppliesMoves(t *testing.T) {
	e := NewEngine()
	if err := e.SetPosition("", []string{"e2e4", "c7c5", "g1f3"}); err != nil {
		t.Fatal(err)
	}
	want := "rnbqkbnr/pp1ppppp/8/2p5/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
	if got := e.Position().FEN(); got != want {
		t.Errorf("FEN = %q, want %q", got, want)
	}
}

func TestSetPositionRejectsIllegalMove(t *testing.T) {
	e := NewEngine()
	if err := e.SetPosition("", []string{"e2e5"}); err == nil {
		t.Error("illegal move accepted")
	}
}

func TestPerftFromCurrentPosition(t *testing.T) {
	e := NewEngine()
	if err := e.SetPosition("", nil); err != nil {
		t.Fatal(err)
	}
	if got := e.Perft(3); got != 8902 {
		t.Errorf("Perft(3) = %d, want 8902", got)
	}
}

func TestNewGameKeepsPosition(t *testing.T) {
	e := NewEngine()
	if err := e.SetPosition("", []string{"d2d4"}); err != nil {
		t.Fatal(err)
	}
	before := e.Position().FEN()
	e.NewGame()
	if got := e.Position().FEN(); got != before {
		t.Errorf("NewGame changed the position: %q -> %q", before, got)
	}
}

func TestChess960PositionParsing(t *testing.T) {
	e := NewEngine()
	if err := e.SetOption("UCI_Chess960", "true"); err != nil {
		t.Fatal(err)
	}
	// A shredder-FEN castling field with rooks on their file letters.
	fen := "bqnb1rkr/pp3ppp/3ppn2/2p5/5P2/P2P4/NPP1P1PP/BQ1BNRKR w HFhf - 2 9"
	if err := e.SetPosition(fen, nil); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if !e.Position().Chess960 {
		t.Error("position not flagged as Chess960")
	}
}

func TestGoIgnoredWhileSearching(t *testing.T) {
	e := NewEngine()
	if err := e.SetPosition("", nil); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{}, 2)
	e.OnBestMove = func(_, _ board.Move) { done <- struct{}{} }

	e.Go(Limits{Infinite: true})
	e.Go(Limits{Depth: 1}) // must not start a second search
	e.Stop()
	<-done
	e.Wait()
	select {
	case <-done:
		t.Error("a second search ran concurrently")
	default:
	}
}
