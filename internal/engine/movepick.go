package engine

import "gannet/internal/board"

// pickStage enumerates the phases of the staged move generator. The
// picker yields the TT move first without generating anything, then
// captures split by SEE, then the refutation moves, quiets by history
// and finally the losing captures. Separate stage chains serve check
// evasions and quiescence.
type pickStage int

const (
	stageTTMove pickStage = iota
	stageCaptureInit
	stageGoodCapture
	stageRefutation
	stageQuietInit
	stageQuiet
	stageBadCapture

	stageEvasionTT
	stageEvasionInit
	stageEvasion

	stageQSearchTT
	stageQCaptureInit
	stageQCapture
	stageQCheckInit
	stageQCheck
)

// scoredMove pairs a move with its ordering score.
type scoredMove struct {
	move  board.Move
	score int
}

// MovePicker yields pseudo-legal moves one at a time in decreasing
// expected usefulness. It is resumable: the search pulls moves until
// a cutoff and never pays for ordering moves it does not visit.
type MovePicker struct {
	pos   *board.Position
	hist  *historySet
	cont1 *PieceToHistory // continuation table of the previous move
	cont2 *PieceToHistory // and of the move before that

	ttMove      board.Move
	refutations [3]board.Move
	depth       int
	qsChecks    bool

	stage pickStage

	moves  [256]scoredMove
	cur    int
	end    int
	badCap int // moves[0:badCap] collect losing captures

	refCur, refEnd int

	list board.MoveList
}

// init prepares a picker for a search node. When the side to move is
// in check the evasion chain is used regardless of depth; at
// depth <= 0 the quiescence chain applies, generating quiet checks
// only at depth 0 exactly.
func (mp *MovePicker) init(pos *board.Position, ttMove board.Move, depth int,
	hist *historySet, cont1, cont2 *PieceToHistory,
	killers [2]board.Move, counter board.Move) {

	*mp = MovePicker{
		pos:         pos,
		hist:        hist,
		cont1:       cont1,
		cont2:       cont2,
		ttMove:      ttMove,
		refutations: [3]board.Move{killers[0], killers[1], counter},
		depth:       depth,
	}
	switch {
	case pos.InCheck():
		mp.stage = stageEvasionTT
	case depth <= 0:
		mp.stage = stageQSearchTT
		mp.qsChecks = depth == 0
	default:
		mp.stage = stageTTMove
	}
	if ttMove == board.NoMove || !pos.PseudoLegal(ttMove) {
		mp.ttMove = board.NoMove
		mp.stage++
	}
}

// scoreCaptures orders captures by victim value plus capture history.
func (mp *MovePicker) scoreCaptures() {
	for i := mp.cur; i < mp.end; i++ {
		m := mp.moves[i].move
		victim := mp.pos.CapturedType(m)
		pc := mp.pos.PieceAt(m.From())
		mp.moves[i].score = 7*board.PieceValue[victim] +
			mp.hist.captures.Get(pc, m.To(), victim)
	}
}

// scoreQuiets orders quiets by butterfly plus continuation history.
func (mp *MovePicker) scoreQuiets() {
	us := mp.pos.SideToMove
	for i := mp.cur; i < mp.end; i++ {
		m := mp.moves[i].move
		pc := mp.pos.PieceAt(m.From())
		to := m.To()
		mp.moves[i].score = 2*mp.hist.main.Get(us, m) +
			2*mp.cont1.Get(pc, to) +
			mp.cont2.Get(pc, to)
	}
}

// scoreEvasions puts captures first (by victim value), quiets after.
func (mp *MovePicker) scoreEvasions() {
	us := mp.pos.SideToMove
	for i := mp.cur; i < mp.end; i++ {
		m := mp.moves[i].move
		if mp.pos.IsCapture(m) {
			victim := mp.pos.CapturedType(m)
			attacker := mp.pos.PieceAt(m.From()).Type()
			mp.moves[i].score = board.PieceValue[victim] - int(attacker) + (1 << 20)
		} else {
			mp.moves[i].score = mp.hist.main.Get(us, m)
		}
	}
}

// fill loads a generated move list into the scoring window starting
// at the given offset, dropping the TT move which was already yielded.
func (mp *MovePicker) fill(t board.GenType, start int) {
	mp.pos.GenerateMoves(t, &mp.list)
	mp.cur = start
	mp.end = start
	for _, m := range mp.list.Slice() {
		if m != mp.ttMove {
			mp.moves[mp.end].move = m
			mp.end++
		}
	}
}

// pickBest selection-sorts one step: move the best remaining entry of
// [cur, end) to cur and return it.
func (mp *MovePicker) pickBest() board.Move {
	best := mp.cur
	for i := mp.cur + 1; i < mp.end; i++ {
		if mp.moves[i].score > mp.moves[best].score {
			best = i
		}
	}
	mp.moves[mp.cur], mp.moves[best] = mp.moves[best], mp.moves[mp.cur]
	m := mp.moves[mp.cur].move
	mp.cur++
	return m
}

func (mp *MovePicker) isRefutation(m board.Move) bool {
	for i := 0; i < mp.refEnd; i++ {
		if mp.refutations[i] == m {
			return true
		}
	}
	return false
}

// Next returns the next move to try, or NoMove when exhausted. Moves
// are pseudo-legal; the caller filters with Legal. With skipQuiets
// the quiet stages are bypassed (late-move pruning has decided no
// further quiet move can matter).
func (mp *MovePicker) Next(skipQuiets bool) board.Move {
	for {
		switch mp.stage {
		case stageTTMove, stageEvasionTT, stageQSearchTT:
			mp.stage++
			return mp.ttMove

		case stageCaptureInit, stageQCaptureInit:
			mp.fill(board.GenCaptures, 0)
			mp.scoreCaptures()
			mp.badCap = 0
			mp.stage++

		case stageGoodCapture:
			if mp.cur < mp.end {
				m := mp.pickBest()
				// Losing captures are postponed to the last stage,
				// compacted to the front over slots already consumed.
				if !mp.pos.SeeGe(m, -mp.moves[mp.cur-1].score/32) {
					mp.moves[mp.badCap].move = m
					mp.badCap++
					continue
				}
				return m
			}
			// Compact the refutation list in place: only quiet,
			// pseudo-legal, non-TT entries survive.
			mp.refCur, mp.refEnd = 0, 0
			for _, m := range mp.refutations {
				if m != board.NoMove && m != mp.ttMove &&
					!mp.pos.IsCapture(m) && mp.pos.PseudoLegal(m) {
					mp.refutations[mp.refEnd] = m
					mp.refEnd++
				}
			}
			mp.stage++

		case stageRefutation:
			if mp.refCur < mp.refEnd {
				mp.refCur++
				return mp.refutations[mp.refCur-1]
			}
			mp.stage++

		case stageQuietInit:
			if skipQuiets {
				mp.stage = stageBadCapture
				mp.cur = 0
				mp.end = mp.badCap
				continue
			}
			// Quiets go after the parked losing captures.
			mp.fill(board.GenQuiets, mp.badCap)
			mp.scoreQuiets()
			mp.stage++

		case stageQuiet:
			for mp.cur < mp.end && !skipQuiets {
				m := mp.pickBest()
				if mp.isRefutation(m) {
					continue // already yielded
				}
				return m
			}
			mp.stage++
			mp.cur = 0
			mp.end = mp.badCap

		case stageBadCapture:
			if mp.cur < mp.end {
				m := mp.moves[mp.cur].move
				mp.cur++
				return m
			}
			return board.NoMove

		case stageEvasionInit:
			mp.fill(board.GenEvasions, 0)
			mp.scoreEvasions()
			mp.stage++

		case stageEvasion:
			if mp.cur < mp.end {
				return mp.pickBest()
			}
			return board.NoMove

		case stageQCapture:
			if mp.cur < mp.end {
				return mp.pickBest()
			}
			if !mp.qsChecks {
				return board.NoMove
			}
			mp.stage++

		case stageQCheckInit:
			mp.fill(board.GenQuietChecks, 0)
			mp.stage++

		case stageQCheck:
			if mp.cur < mp.end {
				m := mp.moves[mp.cur].move
				mp.cur++
				return m
			}
			return board.NoMove
		}
	}
}
