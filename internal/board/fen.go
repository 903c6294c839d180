package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is wrapped by every FEN parse error.
var ErrInvalidFEN = errors.New("invalid FEN")

func fenError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFEN, fmt.Sprintf(format, args...))
}

// ParseFEN parses a FEN string into a fresh standard-chess Position.
func ParseFEN(fen string) (*Position, error) {
	p := &Position{}
	if err := p.Set(fen, false); err != nil {
		return nil, err
	}
	return p, nil
}

// Set resets the position from a FEN string. Castling accepts KQkq,
// Shredder file letters (AHah etc.) and X-FEN. An en-passant field is
// ignored unless a pawn capture onto the square is actually possible.
// All derived state (keys, checkers, pins) is recomputed from scratch.
func (p *Position) Set(fen string, chess960 bool) error {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return fenError("need at least 4 fields, got %d", len(parts))
	}

	*p = Position{
		Chess960:       chess960,
		FullMoveNumber: 1,
		states:         make([]StateInfo, 1, 512),
	}
	for sq := A1; sq <= H8; sq++ {
		p.board[sq] = NoPiece
	}
	p.kingSquare[White] = NoSquare
	p.kingSquare[Black] = NoSquare
	for i := range p.castlingRookSq {
		p.castlingRookSq[i] = NoSquare
	}
	st := p.st()
	st.EnPassant = NoSquare
	st.Captured = NoPiece

	if err := p.setPlacement(parts[0]); err != nil {
		return err
	}
	if p.kingSquare[White] == NoSquare || p.kingSquare[Black] == NoSquare {
		return fenError("both kings must be on the board")
	}

	switch parts[1] {
	case "w":
		p.SideToMove = White
	case "b":
		p.SideToMove = Black
	default:
		return fenError("bad side to move %q", parts[1])
	}

	if err := p.setCastling(parts[2]); err != nil {
		return err
	}

	if parts[3] != "-" {
		ep, err := ParseSquare(parts[3])
		if err != nil {
			return fenError("bad en-passant square %q", parts[3])
		}
		if p.epCapturePossible(ep) {
			st.EnPassant = ep
		}
	}

	if len(parts) > 4 {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return fenError("bad halfmove clock %q", parts[4])
		}
		st.Rule50 = n
	}
	if len(parts) > 5 {
		n, err := strconv.Atoi(parts[5])
		if err != nil || n < 1 {
			return fenError("bad fullmove number %q", parts[5])
		}
		p.FullMoveNumber = n
	}

	p.GamePly = 2 * (p.FullMoveNumber - 1)
	if p.SideToMove == Black {
		p.GamePly++
	}

	p.recomputeState(st)
	return nil
}

func (p *Position) setPlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fenError("placement needs 8 ranks, got %d", len(ranks))
	}
	for r := 0; r < 8; r++ {
		rank := 7 - r
		file := 0
		for i := 0; i < len(ranks[r]); i++ {
			ch := ranks[r][i]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			pc := PieceFromChar(ch)
			if pc == NoPiece {
				return fenError("bad piece char %q", string(ch))
			}
			if file > 7 {
				return fenError("rank %d overflows", rank+1)
			}
			if pc.Type() == King && p.kingSquare[pc.Color()] != NoSquare {
				return fenError("duplicate %v king", pc.Color())
			}
			p.putPiece(pc, NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fenError("rank %d has %d files", rank+1, file)
		}
	}
	return nil
}

func (p *Position) setCastling(field string) error {
	if field == "-" {
		return nil
	}
	for i := 0; i < len(field); i++ {
		ch := field[i]
		var c Color
		if ch >= 'a' && ch <= 'z' {
			c = Black
			ch -= 'a' - 'A'
		} else {
			c = White
		}
		ksq := p.kingSquare[c]
		backRank := RankMask[ksq.Rank()]
		rooks := p.Pieces[c][Rook] & backRank

		var rookSq Square
		switch {
		case ch == 'K':
			rookSq = (rooks & ^(SquareBB(ksq) - 1)).MSB() // outermost king side
		case ch == 'Q':
			rookSq = (rooks & (SquareBB(ksq) - 1)).LSB() // outermost queen side
		case ch >= 'A' && ch <= 'H':
			rookSq = NewSquare(int(ch-'A'), ksq.Rank())
			if !rooks.IsSet(rookSq) {
				return fenError("no rook on castling file %c", field[i])
			}
		default:
			return fenError("bad castling char %q", string(field[i]))
		}
		if rookSq == NoSquare {
			return fenError("no castling rook for %q", string(field[i]))
		}

		side := KingSide
		if rookSq < ksq {
			side = QueenSide
		}
		p.addCastlingRight(c, side, rookSq)
	}
	return nil
}

// addCastlingRight records one right and precomputes its empty-squares
// path and the rights-clearing masks.
func (p *Position) addCastlingRight(c Color, side CastlingSide, rookSq Square) {
	idx := castlingIndex(c, side)
	right := castlingRight(c, side)
	ksq := p.kingSquare[c]

	p.st().CastlingRights |= right
	p.castlingRookSq[idx] = rookSq
	p.castlingRightsMask[ksq] |= castlingRight(c, KingSide) | castlingRight(c, QueenSide)
	p.castlingRightsMask[rookSq] |= right

	m := NewCastling(ksq, rookSq)
	kto, rto := m.CastlingKingTo(), m.CastlingRookTo()
	path := Between(ksq, kto) | SquareBB(kto) | Between(rookSq, rto) | SquareBB(rto)
	p.castlingPath[idx] = path &^ (SquareBB(ksq) | SquareBB(rookSq))
}

// epCapturePossible reports whether the side to move has a pawn that
// could capture en passant onto ep, with the double-pushed pawn in
// place and the push squares empty.
func (p *Position) epCapturePossible(ep Square) bool {
	us := p.SideToMove
	them := us.Other()
	if ep.RelativeRank(us) != 5 {
		return false
	}
	capSq := Square(int(ep) - pawnPushDelta(us))
	behind := Square(int(ep) + pawnPushDelta(us))
	if p.board[capSq] != NewPiece(Pawn, them) {
		return false
	}
	if p.board[ep] != NoPiece || p.board[behind] != NoPiece {
		return false
	}
	return pawnAttacks[them][ep]&p.Pieces[us][Pawn] != 0
}

// recomputeState fills every derived StateInfo field from the board.
func (p *Position) recomputeState(st *StateInfo) {
	st.Key = 0
	st.PawnKey = 0
	st.MaterialKey = 0
	st.MinorKey = 0
	st.NonPawnMaterial = [2]int{}

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for i := 0; i < p.pieceCount[c][pt]; i++ {
				st.MaterialKey ^= zobristPiece[c][pt][i]
			}
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				st.Key ^= zobristPiece[c][pt][sq]
				switch pt {
				case Pawn:
					st.PawnKey ^= zobristPiece[c][Pawn][sq]
				case Knight, Bishop, King:
					st.MinorKey ^= zobristPiece[c][pt][sq]
				}
			}
			if pt != Pawn && pt != King {
				st.NonPawnMaterial[c] += PieceValue[pt] * p.pieceCount[c][pt]
			}
		}
	}

	st.Key ^= zobristCastling[st.CastlingRights]
	if st.EnPassant != NoSquare {
		st.Key ^= zobristEnPassant[st.EnPassant.File()]
	}
	if p.SideToMove == Black {
		st.Key ^= zobristSideToMove
	}

	us := p.SideToMove
	st.Checkers = p.AttackersByColor(p.kingSquare[us], us.Other(), p.AllOccupied)
	p.setCheckInfo(st)
}

// FEN serialises the position. Round-trips with Set for every state
// reachable by legal play (modulo the Chess960 rook-letter form of the
// castling field).
func (p *Position) FEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.board[NewSquare(file, rank)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	if p.SideToMove == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}

	cr := p.st().CastlingRights
	if cr == NoCastling {
		sb.WriteByte('-')
	} else {
		order := [4]struct {
			c    Color
			s    CastlingSide
			char byte
		}{
			{White, KingSide, 'K'},
			{White, QueenSide, 'Q'},
			{Black, KingSide, 'k'},
			{Black, QueenSide, 'q'},
		}
		for _, o := range order {
			if cr&castlingRight(o.c, o.s) == 0 {
				continue
			}
			if p.Chess960 {
				ch := byte('A' + p.castlingRookSq[castlingIndex(o.c, o.s)].File())
				if o.c == Black {
					ch += 'a' - 'A'
				}
				sb.WriteByte(ch)
			} else {
				sb.WriteByte(o.char)
			}
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(p.st().EnPassant.String())
	fmt.Fprintf(&sb, " %d %d", p.st().Rule50, p.FullMoveNumber)
	return sb.String()
}
