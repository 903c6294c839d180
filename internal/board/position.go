package board

// CastlingRights is a bitmask of the four castling rights.
type CastlingRights uint8

const (
	WhiteOO  CastlingRights = 1 << iota // white king side
	WhiteOOO                            // white queen side
	BlackOO                             // black king side
	BlackOOO                            // black queen side

	NoCastling  CastlingRights = 0
	AnyCastling CastlingRights = WhiteOO | WhiteOOO | BlackOO | BlackOOO
)

// CastlingSide selects one wing of the board.
type CastlingSide int

const (
	KingSide CastlingSide = iota
	QueenSide
)

func castlingIndex(c Color, s CastlingSide) int {
	return int(c)*2 + int(s)
}

func castlingRight(c Color, s CastlingSide) CastlingRights {
	return CastlingRights(1) << castlingIndex(c, s)
}

// DirtyPiece describes the board delta produced by one move, consumed
// by the evaluator to update its accumulator incrementally. From ==
// NoSquare means the piece appeared (promotion); To == NoSquare means
// it vanished (capture).
type DirtyPiece struct {
	Count int
	Piece [3]Piece
	From  [3]Square
	To    [3]Square
}

// StateInfo holds the per-ply position state that is cheaper to copy
// forward on each move than to recompute on undo. The Position keeps a
// stack of these: DoMove appends one, UndoMove pops it.
type StateInfo struct {
	Key             uint64
	PawnKey         uint64
	MaterialKey     uint64
	MinorKey        uint64
	NonPawnMaterial [2]int
	CastlingRights  CastlingRights
	EnPassant       Square
	Rule50          int
	PliesFromNull   int
	Captured        Piece

	// Repetition is 0 if this position has not occurred since the
	// last irreversible move; otherwise the distance in plies to the
	// previous occurrence, negated when that occurrence was itself a
	// repetition (so negative means at least threefold).
	Repetition int

	Checkers        Bitboard
	BlockersForKing [2]Bitboard
	Pinners         [2]Bitboard
	CheckSquares    [6]Bitboard

	Dirty DirtyPiece
}

// Position is a chess position plus the stack of StateInfos reaching
// back to the last Set call.
type Position struct {
	Pieces      [2][6]Bitboard // [Color][PieceType]
	Occupied    [2]Bitboard    // Per-color occupancy
	AllOccupied Bitboard       // Union of both

	SideToMove     Color
	FullMoveNumber int
	GamePly        int
	Chess960       bool

	board      [64]Piece
	pieceCount [2][6]int
	kingSquare [2]Square

	castlingRightsMask [64]CastlingRights
	castlingRookSq     [4]Square
	castlingPath       [4]Bitboard // squares that must be empty, king and rook excluded

	states []StateInfo
}

// NewPosition returns a position set to the standard starting position.
func NewPosition() *Position {
	p := &Position{}
	if err := p.Set(StartFEN, false); err != nil {
		panic("board: bad start FEN: " + err.Error())
	}
	return p
}

// Clone returns a deep copy, including the state stack. Used to hand
// each search worker its own root position.
func (p *Position) Clone() *Position {
	cp := *p
	cp.states = make([]StateInfo, len(p.states), cap(p.states))
	copy(cp.states, p.states)
	return &cp
}

func (p *Position) st() *StateInfo {
	return &p.states[len(p.states)-1]
}

// State returns the current StateInfo. The pointer is invalidated by
// the next DoMove or UndoMove.
func (p *Position) State() *StateInfo {
	return p.st()
}

// Key returns the Zobrist key of the current position.
func (p *Position) Key() uint64 { return p.st().Key }

// PawnKey returns the pawn-structure Zobrist key.
func (p *Position) PawnKey() uint64 { return p.st().PawnKey }

// MaterialKey returns the material-configuration Zobrist key.
func (p *Position) MaterialKey() uint64 { return p.st().MaterialKey }

// EnPassant returns the en-passant square, or NoSquare. The square is
// only ever stored when an enemy pawn could actually capture onto it.
func (p *Position) EnPassant() Square { return p.st().EnPassant }

// Rule50 returns the halfmove clock.
func (p *Position) Rule50() int { return p.st().Rule50 }

// Castling returns the current castling rights.
func (p *Position) Castling() CastlingRights { return p.st().CastlingRights }

// Checkers returns the pieces giving check to the side to move.
func (p *Position) Checkers() Bitboard { return p.st().Checkers }

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool { return p.st().Checkers != 0 }

// Captured returns the piece captured by the move that produced the
// current state, or NoPiece.
func (p *Position) Captured() Piece { return p.st().Captured }

// NonPawnMaterial returns the non-pawn material value for c.
func (p *Position) NonPawnMaterial(c Color) int { return p.st().NonPawnMaterial[c] }

// BlockersForKing returns the pieces (of either color) that shield c's
// king from enemy sliders.
func (p *Position) BlockersForKing(c Color) Bitboard { return p.st().BlockersForKing[c] }

// KingSquare returns the king square of the given color.
func (p *Position) KingSquare(c Color) Square { return p.kingSquare[c] }

// PieceAt returns the piece on the given square.
func (p *Position) PieceAt(sq Square) Piece { return p.board[sq] }

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool { return p.board[sq] == NoPiece }

// PieceCount returns the number of pieces of the given color and type.
func (p *Position) PieceCount(c Color, pt PieceType) int { return p.pieceCount[c][pt] }

// TotalPieceCount returns the number of pieces on the board.
func (p *Position) TotalPieceCount() int { return p.AllOccupied.PopCount() }

// Ply returns the number of states above the root Set call.
func (p *Position) Ply() int { return len(p.states) - 1 }

// DirtyPiece returns the board delta of the last DoMove.
func (p *Position) DirtyPiece() *DirtyPiece { return &p.st().Dirty }

// CastlingRookSquare returns the rook start square for the given
// castling right, or NoSquare if the right has been lost.
func (p *Position) CastlingRookSquare(c Color, s CastlingSide) Square {
	if p.st().CastlingRights&castlingRight(c, s) == 0 {
		return NoSquare
	}
	return p.castlingRookSq[castlingIndex(c, s)]
}

func pawnPushDelta(c Color) int {
	if c == White {
		return 8
	}
	return -8
}

// putPiece places pc on sq, updating bitboards and counts.
func (p *Position) putPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.board[sq] = pc
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.pieceCount[c][pt]++
	if pt == King {
		p.kingSquare[c] = sq
	}
}

// removePiece removes the piece on sq.
func (p *Position) removePiece(sq Square) {
	pc := p.board[sq]
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.board[sq] = NoPiece
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.pieceCount[c][pt]--
}

// movePiece moves the piece on from to the empty square to.
func (p *Position) movePiece(from, to Square) {
	pc := p.board[from]
	c, pt := pc.Color(), pc.Type()
	fromTo := SquareBB(from) | SquareBB(to)
	p.board[from] = NoPiece
	p.board[to] = pc
	p.Pieces[c][pt] ^= fromTo
	p.Occupied[c] ^= fromTo
	p.AllOccupied ^= fromTo
	if pt == King {
		p.kingSquare[c] = to
	}
}

// piecesBB returns the union over both colors of one piece type.
func (p *Position) piecesBB(pt PieceType) Bitboard {
	return p.Pieces[White][pt] | p.Pieces[Black][pt]
}

// sliderBlockers computes the pieces that block sliders in the given
// set from reaching sq, and the snipers pinning them (sliders with
// exactly one piece between themselves and sq).
func (p *Position) sliderBlockers(sliders Bitboard, sq Square, pinners *Bitboard) Bitboard {
	var blockers Bitboard
	*pinners = 0

	snipers := ((getRookAttacks(sq, 0) & (p.piecesBB(Rook) | p.piecesBB(Queen))) |
		(getBishopAttacks(sq, 0) & (p.piecesBB(Bishop) | p.piecesBB(Queen)))) & sliders
	occupancy := p.AllOccupied ^ snipers

	sqColor := p.board[sq].Color()
	for snipers != 0 {
		sniperSq := snipers.PopLSB()
		b := Between(sq, sniperSq) & occupancy
		if b != 0 && !b.MoreThanOne() {
			blockers |= b
			if b&p.Occupied[sqColor] != 0 {
				*pinners |= SquareBB(sniperSq)
			}
		}
	}
	return blockers
}

// setCheckInfo recomputes blockers, pinners and check squares for the
// current side to move.
func (p *Position) setCheckInfo(st *StateInfo) {
	st.BlockersForKing[White] = p.sliderBlockers(p.Occupied[Black], p.kingSquare[White], &st.Pinners[Black])
	st.BlockersForKing[Black] = p.sliderBlockers(p.Occupied[White], p.kingSquare[Black], &st.Pinners[White])

	ksq := p.kingSquare[p.SideToMove.Other()]
	st.CheckSquares[Pawn] = pawnAttacks[p.SideToMove.Other()][ksq]
	st.CheckSquares[Knight] = knightAttacks[ksq]
	st.CheckSquares[Bishop] = getBishopAttacks(ksq, p.AllOccupied)
	st.CheckSquares[Rook] = getRookAttacks(ksq, p.AllOccupied)
	st.CheckSquares[Queen] = st.CheckSquares[Bishop] | st.CheckSquares[Rook]
	st.CheckSquares[King] = 0
}

// computeRepetition fills st.Repetition by scanning earlier states with
// the same key, bounded by the last irreversible move.
func (p *Position) computeRepetition(st *StateInfo) {
	st.Repetition = 0
	end := st.Rule50
	if st.PliesFromNull < end {
		end = st.PliesFromNull
	}
	cur := len(p.states) - 1
	for i := 4; i <= end && i <= cur; i += 2 {
		prev := &p.states[cur-i]
		if prev.Key == st.Key {
			if prev.Repetition != 0 {
				st.Repetition = -i
			} else {
				st.Repetition = i
			}
			break
		}
	}
}

// DoMove plays the legal move m, computing the check hint itself.
func (p *Position) DoMove(m Move) {
	p.DoMoveGivesCheck(m, p.GivesCheck(m))
}

// DoMoveGivesCheck plays the legal move m. givesCheck must equal
// GivesCheck(m); passing it saves the recomputation when the caller
// already knows.
func (p *Position) DoMoveGivesCheck(m Move, givesCheck bool) {
	prev := *p.st()
	p.states = append(p.states, StateInfo{
		Key:             prev.Key ^ zobristSideToMove,
		PawnKey:         prev.PawnKey,
		MaterialKey:     prev.MaterialKey,
		MinorKey:        prev.MinorKey,
		NonPawnMaterial: prev.NonPawnMaterial,
		CastlingRights:  prev.CastlingRights,
		EnPassant:       NoSquare,
		Rule50:          prev.Rule50 + 1,
		PliesFromNull:   prev.PliesFromNull + 1,
		Captured:        NoPiece,
	})
	st := p.st()

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pc := p.board[from]
	pt := pc.Type()
	dp := &st.Dirty

	if prev.EnPassant != NoSquare {
		st.Key ^= zobristEnPassant[prev.EnPassant.File()]
	}

	if m.IsCastling() {
		// King captures own rook: lift both, then place both, so the
		// Chess960 cases where the squares overlap just work.
		kto := m.CastlingKingTo()
		rto := m.CastlingRookTo()
		rook := p.board[to]

		dp.Count = 2
		dp.Piece[0], dp.From[0], dp.To[0] = pc, from, kto
		dp.Piece[1], dp.From[1], dp.To[1] = rook, to, rto

		p.removePiece(from)
		p.removePiece(to)
		p.putPiece(pc, kto)
		p.putPiece(rook, rto)

		st.Key ^= zobristPiece[us][King][from] ^ zobristPiece[us][King][kto] ^
			zobristPiece[us][Rook][to] ^ zobristPiece[us][Rook][rto]
		st.MinorKey ^= zobristPiece[us][King][from] ^ zobristPiece[us][King][kto]
	} else {
		captured := p.board[to]
		capSq := to
		if m.IsEnPassant() {
			capSq = Square(int(to) - pawnPushDelta(us))
			captured = p.board[capSq]
		}

		dp.Count = 1
		dp.Piece[0], dp.From[0], dp.To[0] = pc, from, to

		if captured != NoPiece {
			cpt := captured.Type()
			p.removePiece(capSq)
			st.Key ^= zobristPiece[them][cpt][capSq]
			st.MaterialKey ^= zobristPiece[them][cpt][p.pieceCount[them][cpt]]
			if cpt == Pawn {
				st.PawnKey ^= zobristPiece[them][Pawn][capSq]
			} else {
				if cpt == Knight || cpt == Bishop {
					st.MinorKey ^= zobristPiece[them][cpt][capSq]
				}
				st.NonPawnMaterial[them] -= PieceValue[cpt]
			}
			st.Captured = captured
			st.Rule50 = 0

			dp.Count = 2
			dp.Piece[1], dp.From[1], dp.To[1] = captured, capSq, NoSquare
		}

		p.movePiece(from, to)
		st.Key ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]
		switch pt {
		case Pawn:
			st.PawnKey ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][Pawn][to]
			st.Rule50 = 0
		case Knight, Bishop, King:
			st.MinorKey ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]
		}

		if m.IsPromotion() {
			promo := m.Promotion()
			p.removePiece(to)
			p.putPiece(NewPiece(promo, us), to)

			st.Key ^= zobristPiece[us][Pawn][to] ^ zobristPiece[us][promo][to]
			st.PawnKey ^= zobristPiece[us][Pawn][to]
			st.MaterialKey ^= zobristPiece[us][Pawn][p.pieceCount[us][Pawn]] ^
				zobristPiece[us][promo][p.pieceCount[us][promo]-1]
			if promo == Knight || promo == Bishop {
				st.MinorKey ^= zobristPiece[us][promo][to]
			}
			st.NonPawnMaterial[us] += PieceValue[promo]

			// The pawn vanishes and the promoted piece appears.
			dp.Piece[dp.Count], dp.From[dp.Count], dp.To[dp.Count] = NewPiece(promo, us), NoSquare, to
			dp.To[0] = NoSquare
			dp.Count++
		} else if pt == Pawn && abs(int(to)-int(from)) == 16 {
			epSq := Square(int(from) + pawnPushDelta(us))
			// Store the square only if an enemy pawn can actually
			// capture onto it; this keeps keys identical across
			// positions where the right is purely notational.
			if pawnAttacks[us][epSq]&p.Pieces[them][Pawn] != 0 {
				st.EnPassant = epSq
				st.Key ^= zobristEnPassant[epSq.File()]
			}
		}
	}

	if mask := p.castlingRightsMask[from] | p.castlingRightsMask[to]; st.CastlingRights&mask != 0 {
		st.Key ^= zobristCastling[st.CastlingRights]
		st.CastlingRights &^= mask
		st.Key ^= zobristCastling[st.CastlingRights]
	}

	p.SideToMove = them
	p.GamePly++
	if us == Black {
		p.FullMoveNumber++
	}

	if givesCheck {
		st.Checkers = p.AttackersByColor(p.kingSquare[them], us, p.AllOccupied)
	} else {
		st.Checkers = 0
	}

	p.setCheckInfo(st)
	p.computeRepetition(st)
}

// UndoMove takes back m, which must be the move that produced the
// current state.
func (p *Position) UndoMove(m Move) {
	p.SideToMove = p.SideToMove.Other()
	us := p.SideToMove
	from, to := m.From(), m.To()
	st := p.st()

	if m.IsCastling() {
		kto := m.CastlingKingTo()
		rto := m.CastlingRookTo()
		rook := p.board[rto]
		king := p.board[kto]
		p.removePiece(kto)
		p.removePiece(rto)
		p.putPiece(king, from)
		p.putPiece(rook, to)
	} else {
		if m.IsPromotion() {
			p.removePiece(to)
			p.putPiece(NewPiece(Pawn, us), from)
		} else {
			p.movePiece(to, from)
		}
		if st.Captured != NoPiece {
			capSq := to
			if m.IsEnPassant() {
				capSq = Square(int(to) - pawnPushDelta(us))
			}
			p.putPiece(st.Captured, capSq)
		}
	}

	p.states = p.states[:len(p.states)-1]
	p.GamePly--
	if us == Black {
		p.FullMoveNumber--
	}
}

// DoNullMove flips the side to move without touching the board.
// Forbidden while in check.
func (p *Position) DoNullMove() {
	prev := *p.st()
	p.states = append(p.states, StateInfo{
		Key:             prev.Key ^ zobristSideToMove,
		PawnKey:         prev.PawnKey,
		MaterialKey:     prev.MaterialKey,
		MinorKey:        prev.MinorKey,
		NonPawnMaterial: prev.NonPawnMaterial,
		CastlingRights:  prev.CastlingRights,
		EnPassant:       NoSquare,
		Rule50:          prev.Rule50 + 1,
		PliesFromNull:   0,
		Captured:        NoPiece,
	})
	st := p.st()
	if prev.EnPassant != NoSquare {
		st.Key ^= zobristEnPassant[prev.EnPassant.File()]
	}
	p.SideToMove = p.SideToMove.Other()
	st.Checkers = 0
	p.setCheckInfo(st)
}

// UndoNullMove undoes a DoNullMove.
func (p *Position) UndoNullMove() {
	p.states = p.states[:len(p.states)-1]
	p.SideToMove = p.SideToMove.Other()
}

// GivesCheck returns true if the pseudo-legal move m checks the enemy
// king, using precomputed check squares and discovered-check blockers.
func (p *Position) GivesCheck(m Move) bool {
	us := p.SideToMove
	from, to := m.From(), m.To()
	st := p.st()
	them := us.Other()
	ksq := p.kingSquare[them]

	// Direct check.
	pt := p.board[from].Type()
	if !m.IsCastling() && st.CheckSquares[pt]&SquareBB(to) != 0 {
		return true
	}

	// Discovered check: the mover shields the enemy king and leaves
	// the line.
	if st.BlockersForKing[them]&SquareBB(from) != 0 && !Aligned(from, to, ksq) {
		return true
	}

	switch m.Flag() {
	case FlagPromotion:
		occ := p.AllOccupied ^ SquareBB(from)
		return AttacksBB(m.Promotion(), to, occ)&SquareBB(ksq) != 0

	case FlagEnPassant:
		capSq := Square(int(to) - pawnPushDelta(us))
		occ := (p.AllOccupied ^ SquareBB(from) ^ SquareBB(capSq)) | SquareBB(to)
		return (getRookAttacks(ksq, occ)&(p.Pieces[us][Rook]|p.Pieces[us][Queen]))|
			(getBishopAttacks(ksq, occ)&(p.Pieces[us][Bishop]|p.Pieces[us][Queen])) != 0

	case FlagCastling:
		rto := m.CastlingRookTo()
		kto := m.CastlingKingTo()
		occ := (p.AllOccupied ^ SquareBB(from) ^ SquareBB(to)) | SquareBB(kto) | SquareBB(rto)
		return getRookAttacks(rto, occ)&SquareBB(ksq) != 0
	}
	return false
}

// Legal returns true if the pseudo-legal move m does not leave or put
// our own king in check.
func (p *Position) Legal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	ksq := p.kingSquare[us]

	if m.IsEnPassant() {
		// Recompute sliding attacks through both vacated squares.
		capSq := Square(int(to) - pawnPushDelta(us))
		occ := (p.AllOccupied ^ SquareBB(from) ^ SquareBB(capSq)) | SquareBB(to)
		return getRookAttacks(ksq, occ)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) == 0 &&
			getBishopAttacks(ksq, occ)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen]) == 0
	}

	if m.IsCastling() {
		if p.InCheck() {
			return false
		}
		kto := m.CastlingKingTo()
		occ := p.AllOccupied ^ SquareBB(from) // the stepping king is lifted
		if kto != from {
			step := -1
			if kto > from {
				step = 1
			}
			for s := int(from) + step; ; s += step {
				if p.AttackersByColor(Square(s), them, occ) != 0 {
					return false
				}
				if Square(s) == kto {
					break
				}
			}
		}
		// In Chess960 the castling rook itself may be shielding the
		// king from a slider on the back rank.
		if p.Chess960 {
			occAfter := (p.AllOccupied ^ SquareBB(from) ^ SquareBB(to)) |
				SquareBB(kto) | SquareBB(m.CastlingRookTo())
			if p.AttackersByColor(kto, them, occAfter)&occAfter&^SquareBB(m.CastlingRookTo()) != 0 {
				return false
			}
		}
		return true
	}

	if p.board[from].Type() == King {
		return p.AttackersByColor(to, them, p.AllOccupied^SquareBB(from)) == 0
	}

	// A non-king mover is legal unless it is pinned and leaves the
	// pin line.
	return p.st().BlockersForKing[us]&SquareBB(from) == 0 || Aligned(from, to, ksq)
}

// PseudoLegal validates a possibly bit-corrupted move (typically a raw
// transposition-table move) against the current position.
func (p *Position) PseudoLegal(m Move) bool {
	if !m.IsOK() {
		return false
	}
	us := p.SideToMove
	from, to := m.From(), m.To()
	pc := p.board[from]

	// Special moves take the slow path through the generator.
	if m.Flag() != FlagNormal {
		var ml MoveList
		p.GenerateMoves(GenLegal, &ml)
		return ml.Contains(m)
	}

	if pc == NoPiece || pc.Color() != us {
		return false
	}
	if p.Occupied[us]&SquareBB(to) != 0 {
		return false
	}

	if pc.Type() == Pawn {
		if SquareBB(to)&(Rank1|Rank8) != 0 {
			return false // promotions carry the promotion flag
		}
		push := pawnPushDelta(us)
		switch {
		case pawnAttacks[us][from]&SquareBB(to) != 0:
			if p.Occupied[us.Other()]&SquareBB(to) == 0 {
				return false
			}
		case int(from)+push == int(to):
			if p.board[to] != NoPiece {
				return false
			}
		case int(from)+2*push == int(to) && from.RelativeRank(us) == 1:
			mid := Square(int(from) + push)
			if p.board[mid] != NoPiece || p.board[to] != NoPiece {
				return false
			}
		default:
			return false
		}
	} else if AttacksBB(pc.Type(), from, p.AllOccupied)&SquareBB(to) == 0 {
		return false
	}

	// While in check the move must resolve the check.
	if checkers := p.Checkers(); checkers != 0 && pc.Type() != King {
		if checkers.MoreThanOne() {
			return false
		}
		checker := checkers.LSB()
		if (Between(p.kingSquare[us], checker)|checkers)&SquareBB(to) == 0 {
			return false
		}
	}
	return true
}

// IsDraw returns true if the position is drawn by the 50-move rule or
// by repetition, where ply is the distance from the search root.
func (p *Position) IsDraw(ply int) bool {
	st := p.st()
	if st.Rule50 > 99 {
		if st.Checkers == 0 {
			return true
		}
		// Move 100 delivered with checkmate still counts as mate.
		var ml MoveList
		p.GenerateMoves(GenLegal, &ml)
		return ml.Len() > 0
	}
	// Negative repetition (threefold) counts anywhere; positive only
	// when the previous occurrence lies inside the search tree.
	return st.Repetition != 0 && st.Repetition < ply
}

// HasRepeated returns true if any state on the stack repeats an
// earlier position.
func (p *Position) HasRepeated() bool {
	for i := len(p.states) - 1; i >= 0; i-- {
		st := &p.states[i]
		end := st.Rule50
		if st.PliesFromNull < end {
			end = st.PliesFromNull
		}
		if end < 4 {
			return false
		}
		if st.Repetition != 0 {
			return true
		}
	}
	return false
}

// HasNonPawnMaterial returns true if the side has pieces besides the
// king and pawns. Null-move pruning is unsound without it because
// pawn-only endgames are dominated by zugzwang.
func (p *Position) HasNonPawnMaterial(c Color) bool {
	return p.st().NonPawnMaterial[c] > 0
}

// IsCapture returns true if m takes an enemy piece. Castling is
// encoded as king-takes-rook and never captures.
func (p *Position) IsCapture(m Move) bool {
	if m.IsEnPassant() {
		return true
	}
	return m.Flag() != FlagCastling && p.board[m.To()] != NoPiece
}

// CapturedType returns the piece type m removes from the board, or
// NoPieceType for quiet moves.
func (p *Position) CapturedType(m Move) PieceType {
	if m.IsEnPassant() {
		return Pawn
	}
	if m.Flag() == FlagCastling || p.board[m.To()] == NoPiece {
		return NoPieceType
	}
	return p.board[m.To()].Type()
}

// IsInsufficientMaterial returns true if neither side can possibly
// deliver mate (bare kings, king+minor vs king, same-color bishops).
func (p *Position) IsInsufficientMaterial() bool {
	if p.piecesBB(Pawn) != 0 || p.piecesBB(Rook) != 0 || p.piecesBB(Queen) != 0 {
		return false
	}
	minors := p.piecesBB(Knight) | p.piecesBB(Bishop)
	if minors.PopCount() <= 1 {
		return true
	}
	if p.piecesBB(Knight) != 0 || minors.PopCount() > 2 {
		return false
	}
	// Exactly one bishop each: drawn iff they live on the same color.
	if p.Pieces[White][Bishop].PopCount() != 1 {
		return false
	}
	const darkSquares = Bitboard(0xAA55AA55AA55AA55)
	wb := p.Pieces[White][Bishop].LSB()
	bb := p.Pieces[Black][Bishop].LSB()
	return darkSquares.IsSet(wb) == darkSquares.IsSet(bb)
}
