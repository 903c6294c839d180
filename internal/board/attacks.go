package board

// Pre-computed attack and geometry tables. All tables are read-only
// after package init.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]

	betweenBB [64][64]Bitboard // Squares strictly between two squares
	lineBB    [64][64]Bitboard // Full line through two squares (including endpoints)

	forwardFileBB  [2][64]Bitboard // Squares ahead of sq on its file
	pawnAttackSpan [2][64]Bitboard // Squares a pawn on sq could ever attack
	passedPawnSpan [2][64]Bitboard // forwardFileBB | pawnAttackSpan
)

const (
	notFileAB = ^(FileA | FileB)
	notFileGH = ^(FileG | FileH)
)

// Table initialisation is sequenced explicitly because the cuckoo
// tables need both the Zobrist keys and the attack tables.
func init() {
	initLeaperAttacks()
	initLineTables()
	initSpans()
	initMagics()
	initZobrist()
	initCuckoo()
}

func initLeaperAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		attacks := (bb << 17) & NotFileA
		attacks |= (bb << 15) & NotFileH
		attacks |= (bb >> 17) & NotFileH
		attacks |= (bb >> 15) & NotFileA
		attacks |= (bb << 10) & notFileAB
		attacks |= (bb << 6) & notFileGH
		attacks |= (bb >> 10) & notFileGH
		attacks |= (bb >> 6) & notFileAB
		knightAttacks[sq] = attacks

		attacks = bb.North() | bb.South() | bb.East() | bb.West()
		attacks |= bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()
		kingAttacks[sq] = attacks

		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

func initLineTables() {
	for sq1 := A1; sq1 <= H8; sq1++ {
		for sq2 := A1; sq2 <= H8; sq2++ {
			if sq1 == sq2 {
				continue
			}

			f1, r1 := sq1.File(), sq1.Rank()
			f2, r2 := sq2.File(), sq2.Rank()
			df := sign(f2 - f1)
			dr := sign(r2 - r1)

			// Only aligned pairs (same rank, file or diagonal) get entries.
			if df != 0 && dr != 0 && abs(f2-f1) != abs(r2-r1) {
				continue
			}

			var between Bitboard
			for f, r := f1+df, r1+dr; f != f2 || r != r2; f, r = f+df, r+dr {
				between |= SquareBB(NewSquare(f, r))
			}
			betweenBB[sq1][sq2] = between

			var line Bitboard
			for f, r := f1, r1; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f-df, r-dr {
				line |= SquareBB(NewSquare(f, r))
			}
			for f, r := f1+df, r1+dr; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+df, r+dr {
				line |= SquareBB(NewSquare(f, r))
			}
			lineBB[sq1][sq2] = line
		}
	}
}

func initSpans() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		forwardFileBB[White][sq] = bb.North().NorthFill()
		forwardFileBB[Black][sq] = bb.South().SouthFill()
		for c := White; c <= Black; c++ {
			span := pawnAttacks[c][sq]
			if c == White {
				span = span.NorthFill()
			} else {
				span = span.SouthFill()
			}
			pawnAttackSpan[c][sq] = span
			passedPawnSpan[c][sq] = span | forwardFileBB[c][sq]
		}
	}
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the pawn attack bitboard for a square and color.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// BishopAttacks returns the bishop attack bitboard for a square with given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return getBishopAttacks(sq, occupied)
}

// RookAttacks returns the rook attack bitboard for a square with given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return getRookAttacks(sq, occupied)
}

// QueenAttacks returns the queen attack bitboard for a square with given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return getBishopAttacks(sq, occupied) | getRookAttacks(sq, occupied)
}

// AttacksBB returns the attack set of a piece of the given type on sq.
// Pawns are excluded; use PawnAttacks with a color.
func AttacksBB(pt PieceType, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return getBishopAttacks(sq, occupied)
	case Rook:
		return getRookAttacks(sq, occupied)
	case Queen:
		return getBishopAttacks(sq, occupied) | getRookAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return 0
}

// Between returns the bitboard of squares strictly between two squares.
// Returns empty if the squares are not aligned.
func Between(sq1, sq2 Square) Bitboard {
	return betweenBB[sq1][sq2]
}

// Line returns the bitboard of the full line through two squares.
// Returns empty if the squares are not aligned.
func Line(sq1, sq2 Square) Bitboard {
	return lineBB[sq1][sq2]
}

// Aligned returns true if three squares are on the same line.
func Aligned(sq1, sq2, sq3 Square) bool {
	return lineBB[sq1][sq2]&SquareBB(sq3) != 0
}

// ForwardFile returns the squares ahead of sq on its file from c's
// point of view.
func ForwardFile(c Color, sq Square) Bitboard {
	return forwardFileBB[c][sq]
}

// PassedPawnSpan returns the squares an enemy pawn must not occupy for
// a pawn of color c on sq to be passed.
func PassedPawnSpan(c Color, sq Square) Bitboard {
	return passedPawnSpan[c][sq]
}

// AttackersTo returns a bitboard of all pieces attacking a square.
func (p *Position) AttackersTo(sq Square, occupied Bitboard) Bitboard {
	return (pawnAttacks[Black][sq] & p.Pieces[White][Pawn]) |
		(pawnAttacks[White][sq] & p.Pieces[Black][Pawn]) |
		(knightAttacks[sq] & (p.Pieces[White][Knight] | p.Pieces[Black][Knight])) |
		(kingAttacks[sq] & (p.Pieces[White][King] | p.Pieces[Black][King])) |
		(getBishopAttacks(sq, occupied) & (p.Pieces[White][Bishop] | p.Pieces[Black][Bishop] | p.Pieces[White][Queen] | p.Pieces[Black][Queen])) |
		(getRookAttacks(sq, occupied) & (p.Pieces[White][Rook] | p.Pieces[Black][Rook] | p.Pieces[White][Queen] | p.Pieces[Black][Queen]))
}

// AttackersByColor returns a bitboard of pieces of the given color attacking a square.
func (p *Position) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	enemy := c.Other()
	return (pawnAttacks[enemy][sq] & p.Pieces[c][Pawn]) |
		(knightAttacks[sq] & p.Pieces[c][Knight]) |
		(kingAttacks[sq] & p.Pieces[c][King]) |
		(getBishopAttacks(sq, occupied) & (p.Pieces[c][Bishop] | p.Pieces[c][Queen])) |
		(getRookAttacks(sq, occupied) & (p.Pieces[c][Rook] | p.Pieces[c][Queen]))
}

// IsSquareAttacked returns true if the square is attacked by the given color.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	return p.AttackersByColor(sq, byColor, p.AllOccupied) != 0
}
