package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   to square (0-63)
// bits 6-11:  from square (0-63)
// bits 12-13: promotion piece (0=Knight, 1=Bishop, 2=Rook, 3=Queen)
// bits 14-15: flags (0=normal, 1=promotion, 2=en passant, 3=castling)
//
// Castling is encoded as "king captures own rook" (from = king square,
// to = rook square), which represents Chess960 castling without extra
// state. The sentinels NoMove (from == to == 0) and NullMove
// (from == to == 1) are never legal encodings of real moves.
type Move uint16

// Move flags
const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// Move sentinels.
const (
	NoMove   Move = 0
	NullMove Move = Move(1)<<6 | 1
)

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from)<<6 | Move(to)
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from)<<6 | Move(to) | Move(promo-Knight)<<12 | Move(FlagPromotion)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return Move(from)<<6 | Move(to) | Move(FlagEnPassant)
}

// NewCastling creates a castling move: from is the king square, to is
// the square of the castling rook.
func NewCastling(kingSq, rookSq Square) Move {
	return Move(kingSq)<<6 | Move(rookSq) | Move(FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square((m >> 6) & 0x3F)
}

// To returns the destination square. For castling this is the rook
// square, not where the king lands.
func (m Move) To() Square {
	return Square(m & 0x3F)
}

// Flag returns the move flag.
func (m Move) Flag() uint16 {
	return uint16(m) & 0xC000
}

// Promotion returns the promotion piece type (only valid if IsPromotion() is true).
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Flag() == FlagPromotion
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsOK reports whether m is a real move rather than a sentinel.
func (m Move) IsOK() bool {
	return m != NoMove && m != NullMove
}

// CastlingKingTo returns the square the king lands on for a castling
// move (g1/c1 relative to the mover).
func (m Move) CastlingKingTo() Square {
	rank := m.From().Rank()
	if m.To() > m.From() { // king side
		return NewSquare(6, rank)
	}
	return NewSquare(2, rank)
}

// CastlingRookTo returns the square the rook lands on for a castling
// move (f1/d1 relative to the mover).
func (m Move) CastlingRookTo() Square {
	rank := m.From().Rank()
	if m.To() > m.From() {
		return NewSquare(5, rank)
	}
	return NewSquare(3, rank)
}

// UCI returns the move in long algebraic notation. Castling prints as
// king-from/king-to in standard chess and king-from/rook-from when
// chess960 is true.
func (m Move) UCI(chess960 bool) string {
	if m == NoMove || m == NullMove {
		return "0000"
	}

	to := m.To()
	if m.IsCastling() && !chess960 {
		to = m.CastlingKingTo()
	}

	s := m.From().String() + to.String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// String returns the standard-chess UCI notation of the move.
func (m Move) String() string {
	return m.UCI(false)
}

// ParseMove parses a UCI long-algebraic move string in the context of
// pos. Both castling notations are accepted: king-from/king-to
// (standard) and king-from/rook-from (Chess960).
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move string: %q", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}

	if piece.Type() == King {
		// Chess960 notation: the destination holds our own rook.
		if target := pos.PieceAt(to); target != NoPiece &&
			target.Type() == Rook && target.Color() == piece.Color() {
			return NewCastling(from, to), nil
		}
		// Standard notation: king moves two files.
		if abs(to.File()-from.File()) == 2 {
			side := QueenSide
			if to.File() > from.File() {
				side = KingSide
			}
			rookSq := pos.CastlingRookSquare(piece.Color(), side)
			if rookSq == NoSquare {
				return NoMove, fmt.Errorf("no castling right for %s", s)
			}
			return NewCastling(from, rookSq), nil
		}
	}

	if piece.Type() == Pawn && to == pos.EnPassant() {
		return NewEnPassant(from, to), nil
	}

	return NewMove(from, to), nil
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Remove removes the first occurrence of m, preserving order.
func (ml *MoveList) Remove(m Move) {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			copy(ml.moves[i:], ml.moves[i+1:ml.count])
			ml.count--
			return
		}
	}
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
