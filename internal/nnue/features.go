package nnue

import "gannet/internal/board"

// HalfKA feature set: each active feature combines the perspective's
// king square (bucketed, mirrored so the king sits on the a..d files)
// with one (piece, square) pair. Both perspectives see the board from
// their own side.

const (
	squareNB = 64

	psWPawn   = 0
	psBPawn   = 1 * squareNB
	psWKnight = 2 * squareNB
	psBKnight = 3 * squareNB
	psWBishop = 4 * squareNB
	psBBishop = 5 * squareNB
	psWRook   = 6 * squareNB
	psBRook   = 7 * squareNB
	psWQueen  = 8 * squareNB
	psBQueen  = 9 * squareNB
	psKing    = 10 * squareNB
	psNB      = 11 * squareNB
)

// FeatureDimensions is the input width of the feature transformer:
// 32 king buckets x 11 piece planes x 64 squares.
const FeatureDimensions = squareNB * psNB / 2 // 22528

// MaxActiveFeatures bounds the number of simultaneously active
// features per perspective (32 pieces).
const MaxActiveFeatures = 32

// featureHash identifies the feature set inside the weight file.
const featureHash uint32 = 0x7F234CB8

// pieceSquareIndex maps a board piece to its plane offset per
// perspective: own pieces take the white planes, the opponent's take
// the black ones, and both kings share one plane.
var pieceSquareIndex = [2][12]int{
	{psWPawn, psWKnight, psWBishop, psWRook, psWQueen, psKing,
		psBPawn, psBKnight, psBBishop, psBRook, psBQueen, psKing},
	{psBPawn, psBKnight, psBBishop, psBRook, psBQueen, psKing,
		psWPawn, psWKnight, psWBishop, psWRook, psWQueen, psKing},
}

// kingBuckets maps a perspective-relative king square to its bucket,
// pre-multiplied by psNB. Files e..h mirror onto d..a.
var kingBuckets = [squareNB]int{
	28 * psNB, 29 * psNB, 30 * psNB, 31 * psNB, 31 * psNB, 30 * psNB, 29 * psNB, 28 * psNB,
	24 * psNB, 25 * psNB, 26 * psNB, 27 * psNB, 27 * psNB, 26 * psNB, 25 * psNB, 24 * psNB,
	20 * psNB, 21 * psNB, 22 * psNB, 23 * psNB, 23 * psNB, 22 * psNB, 21 * psNB, 20 * psNB,
	16 * psNB, 17 * psNB, 18 * psNB, 19 * psNB, 19 * psNB, 18 * psNB, 17 * psNB, 16 * psNB,
	12 * psNB, 13 * psNB, 14 * psNB, 15 * psNB, 15 * psNB, 14 * psNB, 13 * psNB, 12 * psNB,
	8 * psNB, 9 * psNB, 10 * psNB, 11 * psNB, 11 * psNB, 10 * psNB, 9 * psNB, 8 * psNB,
	4 * psNB, 5 * psNB, 6 * psNB, 7 * psNB, 7 * psNB, 6 * psNB, 5 * psNB, 4 * psNB,
	0 * psNB, 1 * psNB, 2 * psNB, 3 * psNB, 3 * psNB, 2 * psNB, 1 * psNB, 0 * psNB,
}

// orientTBL gives the horizontal-mirror mask per king square: 0 when
// the king is on files a..d, 7 (flip the file bits) when on e..h.
var orientTBL = [squareNB]int{
	0, 0, 0, 0, 7, 7, 7, 7,
	0, 0, 0, 0, 7, 7, 7, 7,
	0, 0, 0, 0, 7, 7, 7, 7,
	0, 0, 0, 0, 7, 7, 7, 7,
	0, 0, 0, 0, 7, 7, 7, 7,
	0, 0, 0, 0, 7, 7, 7, 7,
	0, 0, 0, 0, 7, 7, 7, 7,
	0, 0, 0, 0, 7, 7, 7, 7,
}

// MakeIndex computes the transformer input index of one piece as seen
// from the given perspective with its king on ksq.
func MakeIndex(perspective board.Color, sq board.Square, pc board.Piece, ksq board.Square) int {
	flip := 56 * int(perspective)
	return (int(sq) ^ orientTBL[ksq] ^ flip) +
		pieceSquareIndex[perspective][pc] +
		kingBuckets[int(ksq)^flip]
}

// IndexList is a fixed-capacity list of feature indices.
type IndexList struct {
	values [MaxActiveFeatures]int
	size   int
}

// Push appends an index.
func (l *IndexList) Push(idx int) {
	l.values[l.size] = idx
	l.size++
}

// Clear empties the list.
func (l *IndexList) Clear() { l.size = 0 }

// Slice returns the live indices.
func (l *IndexList) Slice() []int { return l.values[:l.size] }

// AppendActiveIndices lists every active feature of the position for
// one perspective.
func AppendActiveIndices(pos *board.Position, perspective board.Color, active *IndexList) {
	ksq := pos.KingSquare(perspective)
	occ := pos.AllOccupied
	for occ != 0 {
		sq := occ.PopLSB()
		active.Push(MakeIndex(perspective, sq, pos.PieceAt(sq), ksq))
	}
}

// RequiresRefresh reports whether the delta moves the perspective's
// own king; king-bucket features cannot be updated incrementally.
func RequiresRefresh(dp *board.DirtyPiece, perspective board.Color) bool {
	for i := 0; i < dp.Count; i++ {
		if dp.Piece[i].Type() == board.King && dp.Piece[i].Color() == perspective {
			return true
		}
	}
	return false
}

// AppendChangedIndices translates a board delta into removed and added
// feature indices for one perspective. ksq must be the perspective's
// king square after the delta; callers guarantee the king did not move
// along the path (RequiresRefresh is false).
func AppendChangedIndices(dp *board.DirtyPiece, perspective board.Color, ksq board.Square, removed, added *IndexList) {
	for i := 0; i < dp.Count; i++ {
		if dp.From[i] != board.NoSquare {
			removed.Push(MakeIndex(perspective, dp.From[i], dp.Piece[i], ksq))
		}
		if dp.To[i] != board.NoSquare {
			added.Push(MakeIndex(perspective, dp.To[i], dp.Piece[i], ksq))
		}
	}
}
