// Package book provides opening book probing. Two backends share the
// Source interface: an in-memory Polyglot file and a BadgerDB store
// built by importing Polyglot files, for books too large to hold in
// memory.
package book

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"

	"gannet/internal/board"
)

// Source answers opening book lookups.
type Source interface {
	// Probe returns a book move for the position, chosen by weighted
	// random selection, or ok=false when the position is not covered.
	Probe(pos *board.Position) (m board.Move, ok bool)
	Close() error
}

// Open selects a backend by path: a directory opens a Badger store, a
// regular file loads as a Polyglot book.
func Open(path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return OpenStore(path)
	}
	return LoadPolyglot(path)
}

// Entry is one weighted book move for a position.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book is an in-memory Polyglot book keyed by Polyglot hash.
type Book struct {
	entries map[uint64][]Entry
}

// LoadPolyglot reads a Polyglot book file into memory.
func LoadPolyglot(filename string) (*Book, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPolyglot(f)
}

// ReadPolyglot parses the Polyglot record stream: 16-byte big-endian
// records of key, move, weight and learn data (ignored).
func ReadPolyglot(r io.Reader) (*Book, error) {
	b := &Book{entries: make(map[uint64][]Entry)}
	var rec [16]byte
	for {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("book: %w", err)
		}
		key := binary.BigEndian.Uint64(rec[0:8])
		raw := binary.BigEndian.Uint16(rec[8:10])
		weight := binary.BigEndian.Uint16(rec[10:12])
		b.entries[key] = append(b.entries[key], Entry{Move: decodeMove(raw), Weight: weight})
	}
	for _, es := range b.entries {
		sortByWeight(es)
	}
	return b, nil
}

// decodeMove unpacks the Polyglot move encoding: to in bits 0-5, from
// in bits 6-11, promotion piece in bits 12-14 (knight=1 .. queen=4).
// Castling is stored as king-takes-rook, which matches the internal
// encoding directly.
func decodeMove(raw uint16) board.Move {
	from := board.Square(raw >> 6 & 0x3F)
	to := board.Square(raw & 0x3F)
	if promo := raw >> 12 & 7; promo != 0 {
		return board.NewPromotion(from, to, board.PieceType(promo)+board.Knight-1)
	}
	return board.NewMove(from, to)
}

func sortByWeight(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool { return es[i].Weight > es[j].Weight })
}

// Probe implements Source.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	return pickWeighted(pos, b.entries[pos.PolyglotHash()])
}

// Entries returns all book moves for the position, best weight first.
func (b *Book) Entries(pos *board.Position) []Entry {
	return b.entries[pos.PolyglotHash()]
}

// Positions is the number of distinct positions in the book.
func (b *Book) Positions() int { return len(b.entries) }

func (b *Book) Close() error { return nil }

// pickWeighted draws a move with probability proportional to its
// weight, then resolves it against the legal move list so castling,
// en passant and promotion flags come out right.
func pickWeighted(pos *board.Position, es []Entry) (board.Move, bool) {
	if len(es) == 0 {
		return board.NoMove, false
	}
	total := uint32(0)
	for _, e := range es {
		total += uint32(e.Weight)
	}
	chosen := es[0].Move
	if total > 0 {
		r := rand.Uint32() % total
		var acc uint32
		for _, e := range es {
			acc += uint32(e.Weight)
			if r < acc {
				chosen = e.Move
				break
			}
		}
	}
	if m := matchLegal(pos, chosen); m != board.NoMove {
		return m, true
	}
	return board.NoMove, false
}

// matchLegal maps a raw from/to/promotion triple onto the legal move
// with the proper flags. Polyglot's king-takes-rook castling encoding
// is recognized by the rook square in the to field.
func matchLegal(pos *board.Position, raw board.Move) board.Move {
	var ml board.MoveList
	pos.GenerateMoves(board.GenLegal, &ml)
	for _, lm := range ml.Slice() {
		if lm.IsCastling() {
			if lm.From() == raw.From() && lm.To() == raw.To() {
				return lm
			}
			// Standard-chess books sometimes write e1g1 instead.
			if lm.From() == raw.From() && lm.CastlingKingTo() == raw.To() {
				return lm
			}
			continue
		}
		if lm.From() != raw.From() || lm.To() != raw.To() {
			continue
		}
		if lm.IsPromotion() != raw.IsPromotion() {
			continue
		}
		if lm.IsPromotion() && lm.Promotion() != raw.Promotion() {
			continue
		}
		return lm
	}
	return board.NoMove
}
