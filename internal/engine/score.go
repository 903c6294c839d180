// Package engine implements the search: the clustered transposition
// table, the staged move picker with its history tables, a parallel
// iterative-deepening PVS, and the time manager driving it.
package engine

// Score bounds. Mate scores are encoded as ValueMate minus the ply at
// which the mate is delivered, so a deeper mate scores lower.
const (
	MaxPly = 128

	ValueDraw         = 0
	ValueMate         = 30000
	ValueInfinite     = 30001
	ValueNone         = 30002
	ValueMateInMaxPly = ValueMate - MaxPly
)

// mateIn returns the score for giving mate in ply halfmoves.
func mateIn(ply int) int { return ValueMate - ply }

// matedIn returns the score for being mated in ply halfmoves.
func matedIn(ply int) int { return -ValueMate + ply }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
