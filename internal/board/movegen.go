package board

// GenType selects a move-generation category.
type GenType int

const (
	GenCaptures    GenType = iota // captures and promotions
	GenQuiets                     // non-captures, castling included
	GenQuietChecks                // quiet moves that give check
	GenEvasions                   // check evasions (side to move in check)
	GenNonEvasions                // all pseudo-legal moves
	GenLegal                      // fully legal moves
)

// GenerateMoves writes the moves of the requested category into ml.
// All categories except GenLegal produce pseudo-legal moves; callers
// filter with Legal. Generation is total: it cannot fail.
func (p *Position) GenerateMoves(t GenType, ml *MoveList) {
	ml.Clear()

	switch t {
	case GenLegal:
		var pseudo MoveList
		if p.InCheck() {
			p.generate(GenEvasions, &pseudo)
		} else {
			p.generate(GenNonEvasions, &pseudo)
		}
		for _, m := range pseudo.Slice() {
			if p.Legal(m) {
				ml.Add(m)
			}
		}

	case GenQuietChecks:
		var quiets MoveList
		p.generate(GenQuiets, &quiets)
		for _, m := range quiets.Slice() {
			if p.GivesCheck(m) {
				ml.Add(m)
			}
		}

	default:
		p.generate(t, ml)
	}
}

func (p *Position) generate(t GenType, ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.kingSquare[us]

	// Target squares for non-king moves.
	var target Bitboard
	switch t {
	case GenCaptures:
		target = p.Occupied[them]
	case GenQuiets:
		target = ^p.AllOccupied
	case GenNonEvasions:
		target = ^p.Occupied[us]
	case GenEvasions:
		checkers := p.Checkers()
		if checkers.MoreThanOne() {
			// Double check: only the king may move.
			p.generateKingMoves(ml, ^p.Occupied[us])
			return
		}
		// Capture the checker or interpose on its line.
		checker := checkers.LSB()
		target = Between(ksq, checker) | checkers
	}

	p.generatePawnMoves(t, target, ml)

	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := AttacksBB(pt, from, p.AllOccupied) & target
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	switch t {
	case GenEvasions:
		p.generateKingMoves(ml, ^p.Occupied[us])
	case GenCaptures:
		p.generateKingMoves(ml, p.Occupied[them])
	case GenQuiets:
		p.generateKingMoves(ml, ^p.AllOccupied)
		p.generateCastling(ml)
	case GenNonEvasions:
		p.generateKingMoves(ml, ^p.Occupied[us])
		p.generateCastling(ml)
	}
}

func (p *Position) generateKingMoves(ml *MoveList, target Bitboard) {
	from := p.kingSquare[p.SideToMove]
	attacks := kingAttacks[from] & target
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

func (p *Position) generateCastling(ml *MoveList) {
	us := p.SideToMove
	for _, side := range [2]CastlingSide{KingSide, QueenSide} {
		if p.st().CastlingRights&castlingRight(us, side) == 0 {
			continue
		}
		idx := castlingIndex(us, side)
		if p.castlingPath[idx]&p.AllOccupied != 0 {
			continue
		}
		// Attack checks along the king path are left to Legal.
		ml.Add(NewCastling(p.kingSquare[us], p.castlingRookSq[idx]))
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generatePawnMoves emits pawn pushes, captures, promotions and en
// passant using shifted bitboards. Promotions belong to the capture
// category.
func (p *Position) generatePawnMoves(t GenType, target Bitboard, ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	enemies := p.Occupied[them]

	var rank7, rank3 Bitboard
	push := pawnPushDelta(us)
	if us == White {
		rank7, rank3 = Rank7, Rank3
	} else {
		rank7, rank3 = Rank2, Rank6
	}
	pawnsOn7 := pawns & rank7
	pawnsNot7 := pawns &^ rank7

	// Per-color shift deltas for the capture directions. East capture
	// lands push+1 from the pawn, west capture push-1.
	shiftFwd := func(b Bitboard) Bitboard { return b.Forward(us) }
	shiftCapE := func(b Bitboard) Bitboard {
		if us == White {
			return b.NorthEast()
		}
		return b.SouthEast()
	}
	shiftCapW := func(b Bitboard) Bitboard {
		if us == White {
			return b.NorthWest()
		}
		return b.SouthWest()
	}

	// Quiet pushes.
	if t != GenCaptures {
		single := shiftFwd(pawnsNot7) & empty
		double := shiftFwd(single&rank3) & empty
		if t == GenEvasions {
			single &= target
			double &= target
		}
		for b := single; b != 0; {
			to := b.PopLSB()
			ml.Add(NewMove(Square(int(to)-push), to))
		}
		for b := double; b != 0; {
			to := b.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*push), to))
		}
	}

	// Promotions, both pushing and capturing.
	if pawnsOn7 != 0 && t != GenQuiets {
		promoTarget := Universe
		if t == GenEvasions {
			promoTarget = target
		}
		for b := shiftFwd(pawnsOn7) & empty & promoTarget; b != 0; {
			to := b.PopLSB()
			addPromotions(ml, Square(int(to)-push), to)
		}
		for b := shiftCapE(pawnsOn7) & enemies & promoTarget; b != 0; {
			to := b.PopLSB()
			addPromotions(ml, Square(int(to)-push-1), to)
		}
		for b := shiftCapW(pawnsOn7) & enemies & promoTarget; b != 0; {
			to := b.PopLSB()
			addPromotions(ml, Square(int(to)-push+1), to)
		}
	}

	// Ordinary captures.
	if t == GenCaptures || t == GenNonEvasions || t == GenEvasions {
		capTarget := enemies
		if t == GenEvasions {
			capTarget &= target
		}
		for b := shiftCapE(pawnsNot7) & capTarget; b != 0; {
			to := b.PopLSB()
			ml.Add(NewMove(Square(int(to)-push-1), to))
		}
		for b := shiftCapW(pawnsNot7) & capTarget; b != 0; {
			to := b.PopLSB()
			ml.Add(NewMove(Square(int(to)-push+1), to))
		}

		if ep := p.st().EnPassant; ep != NoSquare {
			capSq := Square(int(ep) - push)
			if t != GenEvasions || target&(SquareBB(capSq)|SquareBB(ep)) != 0 {
				for b := pawnAttacks[them][ep] & pawnsNot7; b != 0; {
					ml.Add(NewEnPassant(b.PopLSB(), ep))
				}
			}
		}
	}
}

// HasLegalMoves returns true if the side to move has at least one
// legal move.
func (p *Position) HasLegalMoves() bool {
	var pseudo MoveList
	if p.InCheck() {
		p.generate(GenEvasions, &pseudo)
	} else {
		p.generate(GenNonEvasions, &pseudo)
	}
	for _, m := range pseudo.Slice() {
		if p.Legal(m) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the side to move is stalemated.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// PerftEntry is one root move with its subtree leaf count.
type PerftEntry struct {
	Move  Move
	Nodes uint64
}

// Perft counts the leaf nodes of the legal move tree to the given
// depth. The reference counts for the standard positions validate the
// whole move generator.
func Perft(p *Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var ml MoveList
	p.GenerateMoves(GenLegal, &ml)
	if depth == 1 {
		return uint64(ml.Len())
	}
	var nodes uint64
	for _, m := range ml.Slice() {
		p.DoMove(m)
		nodes += Perft(p, depth-1)
		p.UndoMove(m)
	}
	return nodes
}

// PerftDivide returns the per-root-move node counts at the given
// depth, in generation order.
func PerftDivide(p *Position, depth int) []PerftEntry {
	var ml MoveList
	p.GenerateMoves(GenLegal, &ml)
	out := make([]PerftEntry, 0, ml.Len())
	for _, m := range ml.Slice() {
		p.DoMove(m)
		n := Perft(p, depth-1)
		p.UndoMove(m)
		out = append(out, PerftEntry{m, n})
	}
	return out
}
