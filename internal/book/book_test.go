package book

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"gannet/internal/board"
)

// polyglotBytes builds the 16-byte records of a book file.
func polyglotBytes(entries []struct {
	key    uint64
	move   uint16
	weight uint16
}) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		var rec [16]byte
		binary.BigEndian.PutUint64(rec[0:8], e.key)
		binary.BigEndian.PutUint16(rec[8:10], e.move)
		binary.BigEndian.PutUint16(rec[10:12], e.weight)
		buf.Write(rec[:])
	}
	return buf.Bytes()
}

func rawMove(t *testing.T, pos *board.Position, uci string) uint16 {
	t.Helper()
	m, err := board.ParseMove(uci, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", uci, err)
	}
	return encodeMove(m)
}

func TestReadPolyglotProbe(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	data := polyglotBytes([]struct {
		key    uint64
		move   uint16
		weight uint16
	}{
		{key, rawMove(t, pos, "e2e4"), 300},
		{key, rawMove(t, pos, "d2d4"), 200},
		{0xDEAD, 0, 1}, // unrelated position
	})

	b, err := ReadPolyglot(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Positions(); got != 2 {
		t.Errorf("Positions = %d, want 2", got)
	}

	es := b.Entries(pos)
	if len(es) != 2 {
		t.Fatalf("Entries = %d, want 2", len(es))
	}
	if es[0].Weight != 300 {
		t.Errorf("entries not sorted by weight: %+v", es)
	}

	m, ok := b.Probe(pos)
	if !ok {
		t.Fatal("probe missed a covered position")
	}
	if s := m.String(); s != "e2e4" && s != "d2d4" {
		t.Errorf("probe returned %s, not a book move", s)
	}
}

func TestProbeUncoveredPosition(t *testing.T) {
	b, err := ReadPolyglot(bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Probe(board.NewPosition()); ok {
		t.Error("probe hit on an empty book")
	}
}

func TestReadPolyglotTruncated(t *testing.T) {
	if _, err := ReadPolyglot(bytes.NewReader(make([]byte, 10))); err == nil {
		t.Error("truncated record accepted")
	}
}

// A book entry whose move is not legal in the probed position (a key
// collision) must not come out of Probe.
func TestProbeRejectsIllegalMove(t *testing.T) {
	pos := board.NewPosition()
	data := polyglotBytes([]struct {
		key    uint64
		move   uint16
		weight uint16
	}{
		// e2e5: not a legal pawn move from the start.
		{pos.PolyglotHash(), uint16(board.E2)<<6 | uint16(board.E5), 100},
	})
	b, err := ReadPolyglot(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if m, ok := b.Probe(pos); ok {
		t.Errorf("probe returned illegal move %v", m)
	}
}

func TestPromotionDecoding(t *testing.T) {
	pos, err := board.ParseFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	data := polyglotBytes([]struct {
		key    uint64
		move   uint16
		weight uint16
	}{
		{pos.PolyglotHash(), rawMove(t, pos, "a7a8q"), 50},
	})
	b, err := ReadPolyglot(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := b.Probe(pos)
	if !ok {
		t.Fatal("probe missed")
	}
	if !m.IsPromotion() || m.Promotion() != board.Queen {
		t.Errorf("probe returned %v, want a queen promotion", m)
	}
}

func TestStoreImportAndProbe(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	dir := t.TempDir()
	bin := filepath.Join(dir, "lines.bin")
	data := polyglotBytes([]struct {
		key    uint64
		move   uint16
		weight uint16
	}{
		{key, rawMove(t, pos, "e2e4"), 120},
		{key, rawMove(t, pos, "c2c4"), 40},
	})
	if err := os.WriteFile(bin, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenStore(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	n, err := s.ImportPolyglot(bin)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("imported %d positions, want 1", n)
	}

	es, err := s.Lookup(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(es) != 2 || es[0].Weight != 120 {
		t.Errorf("Lookup = %+v, want two entries, heaviest first", es)
	}

	m, ok := s.Probe(pos)
	if !ok {
		t.Fatal("store probe missed")
	}
	if got := m.String(); got != "e2e4" && got != "c2c4" {
		t.Errorf("store probe returned %s", got)
	}
}

// Importing the same file twice merges weights instead of duplicating
// entries.
func TestStoreImportMergesWeights(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	dir := t.TempDir()
	bin := filepath.Join(dir, "lines.bin")
	data := polyglotBytes([]struct {
		key    uint64
		move   uint16
		weight uint16
	}{
		{key, rawMove(t, pos, "g1f3"), 70},
	})
	if err := os.WriteFile(bin, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenStore(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < 2; i++ {
		if _, err := s.ImportPolyglot(bin); err != nil {
			t.Fatal(err)
		}
	}
	es, err := s.Lookup(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(es) != 1 || es[0].Weight != 140 {
		t.Errorf("Lookup = %+v, want one entry of weight 140", es)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	bin := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(bin, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := Open(bin)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Book); !ok {
		t.Errorf("Open(file) = %T, want *Book", src)
	}
	_ = src.Close()

	dbDir := filepath.Join(dir, "store")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		t.Fatal(err)
	}
	src, err = Open(dbDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Store); !ok {
		t.Errorf("Open(dir) = %T, want *Store", src)
	}
	_ = src.Close()
}
