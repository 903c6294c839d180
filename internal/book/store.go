package book

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"gannet/internal/board"
)

// Store is an opening book backed by BadgerDB. Keys are the 8-byte
// big-endian Polyglot hash; values concatenate 4-byte records of move
// and weight, sorted by weight descending at import time. A store is
// built once with ImportPolyglot and probed read-only afterwards.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) a book database in dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("book store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Probe implements Source.
func (s *Store) Probe(pos *board.Position) (board.Move, bool) {
	es, err := s.Lookup(pos.PolyglotHash())
	if err != nil || len(es) == 0 {
		return board.NoMove, false
	}
	return pickWeighted(pos, es)
}

// Lookup returns the stored entries for a Polyglot hash.
func (s *Store) Lookup(key uint64) ([]Entry, error) {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], key)

	var es []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k[:])
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			es = decodeEntries(val)
			return nil
		})
	})
	return es, err
}

// Positions counts the distinct positions in the store.
func (s *Store) Positions() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// ImportPolyglot merges a Polyglot book file into the store and
// returns the number of positions written. Entries for positions
// already present are combined.
func (s *Store) ImportPolyglot(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	b, err := ReadPolyglot(f)
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	written := 0
	for key, es := range b.entries {
		if old, err := s.Lookup(key); err == nil && len(old) > 0 {
			es = mergeEntries(old, es)
		}
		var k [8]byte
		binary.BigEndian.PutUint64(k[:], key)
		if err := wb.Set(k[:], encodeEntries(es)); err != nil {
			return written, err
		}
		written++
	}
	if err := wb.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

func encodeEntries(es []Entry) []byte {
	buf := make([]byte, 0, 4*len(es))
	for _, e := range es {
		buf = binary.BigEndian.AppendUint16(buf, encodeMove(e.Move))
		buf = binary.BigEndian.AppendUint16(buf, e.Weight)
	}
	return buf
}

func decodeEntries(val []byte) []Entry {
	es := make([]Entry, 0, len(val)/4)
	for i := 0; i+4 <= len(val); i += 4 {
		raw := binary.BigEndian.Uint16(val[i:])
		weight := binary.BigEndian.Uint16(val[i+2:])
		es = append(es, Entry{Move: decodeMove(raw), Weight: weight})
	}
	return es
}

// encodeMove packs a move back into the Polyglot wire form.
func encodeMove(m board.Move) uint16 {
	raw := uint16(m.From())<<6 | uint16(m.To())
	if m.IsPromotion() {
		raw |= uint16(m.Promotion()-board.Knight+1) << 12
	}
	return raw
}

// mergeEntries sums weights for moves present on both sides, saturating
// at the uint16 limit.
func mergeEntries(old, add []Entry) []Entry {
	merged := make([]Entry, len(old))
	copy(merged, old)
outer:
	for _, e := range add {
		for i := range merged {
			if merged[i].Move == e.Move {
				if sum := uint32(merged[i].Weight) + uint32(e.Weight); sum > 0xFFFF {
					merged[i].Weight = 0xFFFF
				} else {
					merged[i].Weight = uint16(sum)
				}
				continue outer
			}
		}
		merged = append(merged, e)
	}
	sortByWeight(merged)
	return merged
}
