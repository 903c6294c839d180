package uci

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"gannet/internal/engine"
)

// syncBuffer collects protocol output; bestmove lines are written from
// search goroutines while tests poll.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// run feeds a script of commands through a fresh protocol instance and
// returns everything it printed.
func run(t *testing.T, script string) string {
	t.Helper()
	eng := engine.NewEngine()
	defer eng.Close()
	var out syncBuffer
	New(eng, &out).Run(strings.NewReader(script))
	return out.String()
}

func TestHandshake(t *testing.T) {
	out := run(t, "uci\nisready\nquit\n")
	for _, want := range []string{
		"id name Gannet",
		"option name Hash type spin default 64 min 1 max 4096",
		"option name MultiPV type spin",
		"option name UCI_Chess960 type check default false",
		"uciok",
		"readyok",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("handshake output missing %q:\n%s", want, out)
		}
	}
}

func TestPositionAndDisplay(t *testing.T) {
	out := run(t, "position startpos moves e2e4 e7e5\nd\nquit\n")
	want := "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2"
	if !strings.Contains(out, want) {
		t.Errorf("d output missing %q:\n%s", want, out)
	}
}

func TestInvalidPositionReported(t *testing.T) {
	out := run(t, "position fen not/a/fen w - - 0 1\nquit\n")
	if !strings.Contains(out, "info string") {
		t.Errorf("invalid FEN not reported:\n%s", out)
	}
}

func TestGoDepthProducesBestmove(t *testing.T) {
	eng := engine.NewEngine()
	defer eng.Close()
	if err := eng.SetOption("Hash", "16"); err != nil {
		t.Fatal(err)
	}
	var out syncBuffer
	p := New(eng, &out)

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		p.Run(pr)
		close(done)
	}()

	if _, err := io.WriteString(pw, "position startpos\ngo depth 2\n"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Minute)
	for !strings.Contains(out.String(), "bestmove ") {
		if time.Now().After(deadline) {
			t.Fatalf("no bestmove printed:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := io.WriteString(pw, "quit\n"); err != nil {
		t.Fatal(err)
	}
	<-done
	pw.Close()

	s := out.String()
	if !strings.Contains(s, "info depth ") || !strings.Contains(s, " pv ") {
		t.Errorf("no search info printed:\n%s", s)
	}
}

func TestSetOptionRoundTrip(t *testing.T) {
	eng := engine.NewEngine()
	defer eng.Close()
	var out syncBuffer
	New(eng, &out).Run(strings.NewReader(
		"setoption name MultiPV value 4\nsetoption name Move Overhead value 10\nquit\n"))
	if eng.MultiPV.Value != 4 {
		t.Errorf("MultiPV = %d, want 4", eng.MultiPV.Value)
	}
	// Unknown names are reported, not fatal.
	if !strings.Contains(out.String(), "info string") {
		t.Error("unknown option not reported")
	}
}

func TestScoreFormatting(t *testing.T) {
	cases := []struct {
		value int
		want  string
	}{
		{42, "cp 42"},
		{-7, "cp -7"},
		{engine.ValueMate - 1, "mate 1"},
		{engine.ValueMate - 5, "mate 3"},
		{-(engine.ValueMate - 2), "mate -1"},
		{-(engine.ValueMate - 6), "mate -3"},
	}
	for _, c := range cases {
		if got := formatScore(c.value); got != c.want {
			t.Errorf("formatScore(%d) = %q, want %q", c.value, got, c.want)
		}
	}
}
