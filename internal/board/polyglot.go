package board

// Polyglot-style Zobrist keys, kept separate from the internal keys so
// opening-book lookups are stable against engine hashing changes.
var (
	polyglotPieces     [12][64]uint64 // [piece_kind][square]
	polyglotCastling   [4]uint64      // [KQkq]
	polyglotEnPassant  [8]uint64      // [file]
	polyglotSideToMove uint64
)

func init() {
	initPolyglotKeys()
}

// PolyglotHash computes the book hash key of the position.
func (p *Position) PolyglotHash() uint64 {
	var hash uint64

	// Polyglot piece ordering: bp, bN, bB, bR, bQ, bK, wp, wN, ..., wK.
	pieceKindMap := [2][6]int{
		{6, 7, 8, 9, 10, 11},
		{0, 1, 2, 3, 4, 5},
	}

	for color := White; color <= Black; color++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[color][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				hash ^= polyglotPieces[pieceKindMap[color][pt]][sq]
			}
		}
	}

	cr := p.Castling()
	if cr&WhiteOO != 0 {
		hash ^= polyglotCastling[0]
	}
	if cr&WhiteOOO != 0 {
		hash ^= polyglotCastling[1]
	}
	if cr&BlackOO != 0 {
		hash ^= polyglotCastling[2]
	}
	if cr&BlackOOO != 0 {
		hash ^= polyglotCastling[3]
	}

	// The en-passant square is only ever stored when a capture onto it
	// is possible, which is exactly the Polyglot hashing rule.
	if ep := p.EnPassant(); ep != NoSquare {
		hash ^= polyglotEnPassant[ep.File()]
	}

	if p.SideToMove == White {
		hash ^= polyglotSideToMove
	}

	return hash
}

func initPolyglotKeys() {
	rng := newPRNG(0x37B4A4B3F0D1C0D0)

	for piece := 0; piece < 12; piece++ {
		for sq := 0; sq < 64; sq++ {
			polyglotPieces[piece][sq] = rng.next()
		}
	}
	for i := 0; i < 4; i++ {
		polyglotCastling[i] = rng.next()
	}
	for i := 0; i < 8; i++ {
		polyglotEnPassant[i] = rng.next()
	}
	polyglotSideToMove = rng.next()
}
