package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gannet/internal/board"
	"gannet/internal/book"
	"gannet/internal/nnue"
	"gannet/internal/tablebase"
)

// Option is a typed engine parameter exposed over the protocol.
type Option interface {
	Name() string
}

// BoolOption is a check option.
type BoolOption struct {
	name  string
	Value bool
}

func (o *BoolOption) Name() string { return o.name }

// IntOption is a spin option with an inclusive range.
type IntOption struct {
	name  string
	Value int
	Min   int
	Max   int
}

func (o *IntOption) Name() string { return o.name }

// StringOption is a free-form string option.
type StringOption struct {
	name  string
	Value string
}

func (o *StringOption) Name() string { return o.name }

// Engine owns everything a search needs: the shared transposition
// table, the worker pool, the current position and the option set. The
// protocol layer drives it and receives results through the OnInfo and
// OnBestMove callbacks.
type Engine struct {
	tt   *TranspositionTable
	pool *Pool
	pos  *board.Position

	Hash         *IntOption
	Threads      *IntOption
	MultiPV      *IntOption
	Ponder       *BoolOption
	MoveOverhead *IntOption
	Chess960     *BoolOption
	OwnBook      *BoolOption
	BookFile     *StringOption
	EvalFile     *StringOption

	book book.Source

	OnInfo     func(SearchInfo)
	OnBestMove func(best, ponder board.Move)
}

// NewEngine builds an engine with default options: 64 MB table, one
// thread, no book, no network.
func NewEngine() *Engine {
	e := &Engine{
		Hash:         &IntOption{name: "Hash", Value: 64, Min: 1, Max: 4096},
		Threads:      &IntOption{name: "Threads", Value: 1, Min: 1, Max: 256},
		MultiPV:      &IntOption{name: "MultiPV", Value: 1, Min: 1, Max: 64},
		Ponder:       &BoolOption{name: "Ponder"},
		MoveOverhead: &IntOption{name: "MoveOverhead", Value: 30, Min: 0, Max: 5000},
		Chess960:     &BoolOption{name: "UCI_Chess960"},
		OwnBook:      &BoolOption{name: "OwnBook"},
		BookFile:     &StringOption{name: "BookFile"},
		EvalFile:     &StringOption{name: "EvalFile"},
	}
	e.tt = NewTranspositionTable(e.Hash.Value)
	e.pool = NewPool(e.tt, e.Threads.Value)
	e.pool.OnInfo = func(info SearchInfo) {
		if e.OnInfo != nil {
			e.OnInfo(info)
		}
	}
	e.pool.OnBestMove = func(best, ponder board.Move) {
		if e.OnBestMove != nil {
			e.OnBestMove(best, ponder)
		}
	}
	e.pos = board.NewPosition()
	return e
}

// Options lists the registered options in display order.
func (e *Engine) Options() []Option {
	return []Option{
		e.Hash, e.Threads, e.MultiPV, e.Ponder, e.MoveOverhead,
		e.Chess960, e.OwnBook, e.BookFile, e.EvalFile,
	}
}

// SetOption applies a name/value pair and its side effect. Options
// must not be changed while a search is running.
func (e *Engine) SetOption(name, value string) error {
	if e.pool.Searching() {
		return fmt.Errorf("cannot set %q during a search", name)
	}
	switch {
	case strings.EqualFold(name, e.Hash.name):
		v, err := parseSpin(e.Hash, value)
		if err != nil {
			return err
		}
		e.Hash.Value = v
		e.tt.Resize(v)

	case strings.EqualFold(name, e.Threads.name):
		v, err := parseSpin(e.Threads, value)
		if err != nil {
			return err
		}
		e.Threads.Value = v
		e.pool.SetThreads(v)

	case strings.EqualFold(name, e.MultiPV.name):
		v, err := parseSpin(e.MultiPV, value)
		if err != nil {
			return err
		}
		e.MultiPV.Value = v

	case strings.EqualFold(name, e.Ponder.name):
		e.Ponder.Value = parseCheck(value)

	case strings.EqualFold(name, e.MoveOverhead.name):
		v, err := parseSpin(e.MoveOverhead, value)
		if err != nil {
			return err
		}
		e.MoveOverhead.Value = v

	case strings.EqualFold(name, e.Chess960.name):
		e.Chess960.Value = parseCheck(value)

	case strings.EqualFold(name, e.OwnBook.name):
		e.OwnBook.Value = parseCheck(value)

	case strings.EqualFold(name, e.BookFile.name):
		if e.book != nil {
			_ = e.book.Close()
			e.book = nil
		}
		e.BookFile.Value = value
		if value != "" && value != "<empty>" {
			src, err := book.Open(value)
			if err != nil {
				return fmt.Errorf("open book: %w", err)
			}
			e.book = src
		}

	case strings.EqualFold(name, e.EvalFile.name):
		if value == "" || value == "<empty>" {
			e.EvalFile.Value = ""
			e.pool.SetNetwork(nil)
			return nil
		}
		net := nnue.NewNetwork()
		if err := net.Load(value); err != nil {
			return fmt.Errorf("load network: %w", err)
		}
		e.EvalFile.Value = value
		e.pool.SetNetwork(net)

	default:
		return fmt.Errorf("unknown option %q", name)
	}
	return nil
}

func parseSpin(o *IntOption, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", o.name, err)
	}
	return clamp(v, o.Min, o.Max), nil
}

func parseCheck(value string) bool {
	return strings.EqualFold(value, "true")
}

// SetTablebase installs an endgame prober.
func (e *Engine) SetTablebase(tb tablebase.Prober) { e.pool.SetTablebase(tb) }

// SetPosition replaces the current position. fen may be empty for the
// starting position; moves are applied on top in long algebraic form.
func (e *Engine) SetPosition(fen string, moves []string) error {
	if fen == "" {
		fen = board.StartFEN
	}
	pos := &board.Position{}
	if err := pos.Set(fen, e.Chess960.Value); err != nil {
		return err
	}
	for _, s := range moves {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			return fmt.Errorf("move %q: %w", s, err)
		}
		pos.DoMove(m)
	}
	e.pos = pos
	return nil
}

// Position returns the position the next search will start from.
func (e *Engine) Position() *board.Position { return e.pos }

// NewGame clears the table and every worker's history state.
func (e *Engine) NewGame() {
	e.pool.Wait()
	e.tt.Clear()
	e.pool.Clear()
}

// Go starts a search under the given limits. When the opening book is
// enabled and covers the position, the move is answered immediately
// without searching. Results arrive through the callbacks.
func (e *Engine) Go(limits Limits) {
	if e.pool.Searching() {
		return
	}
	if e.OwnBook.Value && e.book != nil && bookUsable(&limits) {
		if m, ok := e.book.Probe(e.pos); ok {
			if e.OnBestMove != nil {
				e.OnBestMove(m, board.NoMove)
			}
			return
		}
	}
	overhead := time.Duration(e.MoveOverhead.Value) * time.Millisecond
	e.pool.StartSearch(e.pos, limits, e.MultiPV.Value, overhead)
}

// bookUsable rejects book answers for analysis-style searches, which
// expect the engine to actually search.
func bookUsable(l *Limits) bool {
	return !l.Infinite && !l.Ponder && l.Mate == 0 && len(l.SearchMoves) == 0
}

// Stop aborts the current search; the best move found so far is still
// delivered.
func (e *Engine) Stop() { e.pool.StopSearch() }

// PonderHit switches a ponder search to normal time management.
func (e *Engine) PonderHit() { e.pool.PonderHit() }

// Wait blocks until no search is running.
func (e *Engine) Wait() { e.pool.Wait() }

// Searching reports whether a search is in flight.
func (e *Engine) Searching() bool { return e.pool.Searching() }

// Nodes returns the node count of the last or current search.
func (e *Engine) Nodes() uint64 { return e.pool.Nodes() }

// Perft counts leaf nodes of the legal move tree to the given depth
// from the current position.
func (e *Engine) Perft(depth int) uint64 {
	return board.Perft(e.pos.Clone(), depth)
}

// Close releases resources held by options, currently the book.
func (e *Engine) Close() error {
	e.pool.Wait()
	if e.book != nil {
		err := e.book.Close()
		e.book = nil
		return err
	}
	return nil
}
