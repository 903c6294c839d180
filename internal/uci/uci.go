// Package uci speaks the Universal Chess Interface on standard input
// and output. It owns no search state: commands are translated into
// engine calls and the engine's callbacks are translated back into
// info and bestmove lines.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"gannet/internal/board"
	"gannet/internal/engine"
)

const (
	engineName   = "Gannet"
	engineAuthor = "the Gannet developers"
)

// Protocol binds an engine to a command stream.
type Protocol struct {
	engine *engine.Engine

	mu  sync.Mutex // serializes writes; callbacks fire from search goroutines
	out io.Writer
}

// New wires the protocol to an engine. The engine's callbacks are
// replaced.
func New(eng *engine.Engine, out io.Writer) *Protocol {
	p := &Protocol{engine: eng, out: out}
	eng.OnInfo = p.sendInfo
	eng.OnBestMove = p.sendBestMove
	return p
}

func (p *Protocol) printf(format string, args ...any) {
	p.mu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.mu.Unlock()
}

// Run reads commands until quit or EOF. It blocks the calling
// goroutine; searches run concurrently and report via callbacks.
func (p *Protocol) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1<<16), 1<<20)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "uci":
			p.cmdUCI()
		case "isready":
			p.printf("readyok\n")
		case "setoption":
			p.cmdSetOption(args)
		case "ucinewgame":
			p.engine.NewGame()
		case "position":
			p.cmdPosition(args)
		case "go":
			p.cmdGo(args)
		case "stop":
			p.engine.Stop()
		case "ponderhit":
			p.engine.PonderHit()
		case "quit":
			p.engine.Stop()
			p.engine.Wait()
			return
		case "d":
			p.printf("%s\n", p.engine.Position().FEN())
		case "perft":
			p.cmdPerft(args)
		case "bench":
			p.cmdBench(args)
		}
	}
	p.engine.Stop()
	p.engine.Wait()
}

func (p *Protocol) cmdUCI() {
	p.printf("id name %s\n", engineName)
	p.printf("id author %s\n", engineAuthor)
	for _, opt := range p.engine.Options() {
		switch o := opt.(type) {
		case *engine.IntOption:
			p.printf("option name %s type spin default %d min %d max %d\n",
				o.Name(), o.Value, o.Min, o.Max)
		case *engine.BoolOption:
			p.printf("option name %s type check default %v\n", o.Name(), o.Value)
		case *engine.StringOption:
			v := o.Value
			if v == "" {
				v = "<empty>"
			}
			p.printf("option name %s type string default %s\n", o.Name(), v)
		}
	}
	p.printf("uciok\n")
}

// cmdSetOption parses "setoption name <name> value <value>"; both the
// name and the value may contain spaces.
func (p *Protocol) cmdSetOption(args []string) {
	var name, value []string
	target := &name
	for _, a := range args {
		switch a {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, a)
		}
	}
	if len(name) == 0 {
		return
	}
	err := p.engine.SetOption(strings.Join(name, " "), strings.Join(value, " "))
	if err != nil {
		p.printf("info string %v\n", err)
	}
}

// cmdPosition handles "position [startpos | fen <fen>] [moves ...]".
func (p *Protocol) cmdPosition(args []string) {
	if len(args) == 0 {
		return
	}
	var fen string
	rest := args[1:]
	switch args[0] {
	case "startpos":
	case "fen":
		end := len(rest)
		for i, a := range rest {
			if a == "moves" {
				end = i
				break
			}
		}
		fen = strings.Join(rest[:end], " ")
		rest = rest[end:]
	default:
		return
	}
	var moves []string
	if len(rest) > 0 && rest[0] == "moves" {
		moves = rest[1:]
	}
	if err := p.engine.SetPosition(fen, moves); err != nil {
		p.printf("info string %v\n", err)
	}
}

func (p *Protocol) cmdGo(args []string) {
	var limits engine.Limits
	pos := p.engine.Position()

	ms := func(s string) time.Duration {
		v, _ := strconv.Atoi(s)
		return time.Duration(v) * time.Millisecond
	}
	for i := 0; i < len(args); i++ {
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch args[i] {
		case "wtime":
			limits.Time[board.White] = ms(next())
		case "btime":
			limits.Time[board.Black] = ms(next())
		case "winc":
			limits.Inc[board.White] = ms(next())
		case "binc":
			limits.Inc[board.Black] = ms(next())
		case "movestogo":
			limits.MovesToGo, _ = strconv.Atoi(next())
		case "depth":
			limits.Depth, _ = strconv.Atoi(next())
		case "nodes":
			limits.Nodes, _ = strconv.ParseUint(next(), 10, 64)
		case "mate":
			limits.Mate, _ = strconv.Atoi(next())
		case "movetime":
			limits.MoveTime = ms(next())
		case "infinite":
			limits.Infinite = true
		case "ponder":
			limits.Ponder = true
		case "searchmoves":
			for i+1 < len(args) {
				m, err := board.ParseMove(args[i+1], pos)
				if err != nil {
					break
				}
				limits.SearchMoves = append(limits.SearchMoves, m)
				i++
			}
		}
	}
	p.engine.Go(limits)
}

func (p *Protocol) cmdPerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}
	start := time.Now()
	nodes := p.engine.Perft(depth)
	elapsed := time.Since(start)
	p.printf("info string perft(%d) = %d in %v (%.0f nps)\n",
		depth, nodes, elapsed.Round(time.Millisecond),
		float64(nodes)/elapsed.Seconds())
}

func (p *Protocol) cmdBench(args []string) {
	depth := 0
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}
	nodes, elapsed := p.engine.Bench(depth)
	p.printf("info string bench nodes %d time %d nps %d\n",
		nodes, elapsed.Milliseconds(),
		int64(float64(nodes)/elapsed.Seconds()))
}

// sendInfo formats one iteration report.
func (p *Protocol) sendInfo(info engine.SearchInfo) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d", info.Depth, info.SelDepth)
	if info.MultiPV > 1 || p.engine.MultiPV.Value > 1 {
		fmt.Fprintf(&sb, " multipv %d", info.MultiPV)
	}
	sb.WriteString(" score ")
	sb.WriteString(formatScore(info.Value))
	fmt.Fprintf(&sb, " nodes %d nps %d hashfull %d", info.Nodes, info.NPS, info.HashFull)
	if info.TBHits > 0 {
		fmt.Fprintf(&sb, " tbhits %d", info.TBHits)
	}
	fmt.Fprintf(&sb, " time %d", info.TimeMs)
	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		chess960 := p.engine.Chess960.Value
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.UCI(chess960))
		}
	}
	p.printf("%s\n", sb.String())
}

// formatScore converts an internal value to "cp N" or "mate N". Mate
// scores encode the distance in plies from the root.
func formatScore(v int) string {
	switch {
	case v >= engine.ValueMateInMaxPly:
		return fmt.Sprintf("mate %d", (engine.ValueMate-v+1)/2)
	case v <= -engine.ValueMateInMaxPly:
		return fmt.Sprintf("mate %d", -(engine.ValueMate+v)/2)
	default:
		return fmt.Sprintf("cp %d", v)
	}
}

func (p *Protocol) sendBestMove(best, ponder board.Move) {
	chess960 := p.engine.Chess960.Value
	if best == board.NoMove {
		p.printf("bestmove 0000\n")
		return
	}
	if ponder != board.NoMove {
		p.printf("bestmove %s ponder %s\n", best.UCI(chess960), ponder.UCI(chess960))
		return
	}
	p.printf("bestmove %s\n", best.UCI(chess960))
}
