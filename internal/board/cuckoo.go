package board

// Upcoming-repetition detection after Marcel van Kervinck: a pair of
// cuckoo hash tables maps the XOR of two piece-square keys (plus the
// side key) back to the reversible move connecting the squares. A node
// can then discover in O(1) that the side to move could steer into a
// repetition without searching the move.
var (
	cuckoo     [8192]uint64
	cuckooMove [8192]Move
)

func cuckooH1(key uint64) int { return int(key & 0x1FFF) }
func cuckooH2(key uint64) int { return int((key >> 16) & 0x1FFF) }

// initCuckoo fills the tables with every reversible non-pawn move.
// The occupancy count is an invariant of the key set; a mismatch means
// the Zobrist constants or attack tables changed underneath us.
func initCuckoo() {
	count := 0
	for c := White; c <= Black; c++ {
		for pt := Knight; pt <= King; pt++ {
			for s1 := A1; s1 <= H8; s1++ {
				for s2 := s1 + 1; s2 <= H8; s2++ {
					if AttacksBB(pt, s1, 0)&SquareBB(s2) == 0 {
						continue
					}
					move := NewMove(s1, s2)
					key := zobristPiece[c][pt][s1] ^ zobristPiece[c][pt][s2] ^ zobristSideToMove
					i := cuckooH1(key)
					for {
						cuckoo[i], key = key, cuckoo[i]
						cuckooMove[i], move = move, cuckooMove[i]
						if move == NoMove {
							break
						}
						if i == cuckooH1(key) {
							i = cuckooH2(key)
						} else {
							i = cuckooH1(key)
						}
					}
					count++
				}
			}
		}
	}
	if count != 3668 {
		panic("board: cuckoo table occupancy mismatch")
	}
}

// UpcomingRepetition returns true when the side to move has a legal
// reversible move that leads to a repetition of a position already on
// the stack. ply is the distance from the search root; occurrences at
// or before the root additionally require the earlier position to have
// repeated once already.
func (p *Position) UpcomingRepetition(ply int) bool {
	st := p.st()
	end := st.Rule50
	if st.PliesFromNull < end {
		end = st.PliesFromNull
	}
	cur := len(p.states) - 1
	if end < 3 || cur < 3 {
		return false
	}

	originalKey := st.Key
	other := originalKey ^ p.states[cur-1].Key ^ zobristSideToMove

	for i := 3; i <= end && i <= cur; i += 2 {
		other ^= p.states[cur-i+1].Key ^ p.states[cur-i].Key ^ zobristSideToMove
		if other != 0 {
			continue
		}

		moveKey := originalKey ^ p.states[cur-i].Key
		j := cuckooH1(moveKey)
		if cuckoo[j] != moveKey {
			j = cuckooH2(moveKey)
			if cuckoo[j] != moveKey {
				continue
			}
		}

		move := cuckooMove[j]
		s1, s2 := move.From(), move.To()
		if Between(s1, s2)&p.AllOccupied != 0 {
			continue
		}
		if ply > i {
			return true
		}
		// Repetitions spanning the root only count once the earlier
		// occurrence has itself repeated.
		if p.states[cur-i].Repetition != 0 {
			return true
		}
	}
	return false
}
