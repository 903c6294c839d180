package board

// SeeGe runs a static exchange evaluation of m and reports whether the
// material balance of the capture chain on the destination square is
// at least threshold. The swap loop alternately removes the least
// valuable attacker, adding any x-ray attacker revealed behind it.
// Pinned pieces may not take part while the opposing pinners are still
// on the board.
func (p *Position) SeeGe(m Move, threshold int) bool {
	// Castling, promotion and en passant have no meaningful swap
	// sequence; treat them as breaking even.
	if m.Flag() != FlagNormal {
		return threshold <= 0
	}

	from, to := m.From(), m.To()
	st := p.st()

	swap := PieceValue[p.board[to].Type()] - threshold
	if swap < 0 {
		return false
	}
	swap = PieceValue[p.board[from].Type()] - swap
	if swap <= 0 {
		return true
	}

	occupied := p.AllOccupied ^ SquareBB(from) ^ SquareBB(to)
	stm := p.SideToMove
	attackers := p.AttackersTo(to, occupied)
	res := 1

	for {
		stm = stm.Other()
		attackers &= occupied

		stmAttackers := attackers & p.Occupied[stm]
		if stmAttackers == 0 {
			break
		}
		// Pinned pieces stay out of the exchange while the pinners
		// are still standing.
		if st.Pinners[stm.Other()]&occupied != 0 {
			stmAttackers &^= st.BlockersForKing[stm]
			if stmAttackers == 0 {
				break
			}
		}

		res ^= 1

		var bb Bitboard
		switch {
		case stmAttackers&p.Pieces[stm][Pawn] != 0:
			bb = stmAttackers & p.Pieces[stm][Pawn]
			swap = PieceValue[Pawn] - swap
			if swap < res {
				return res != 0
			}
			occupied ^= SquareBB(bb.LSB())
			attackers |= getBishopAttacks(to, occupied) & (p.piecesBB(Bishop) | p.piecesBB(Queen))

		case stmAttackers&p.Pieces[stm][Knight] != 0:
			bb = stmAttackers & p.Pieces[stm][Knight]
			swap = PieceValue[Knight] - swap
			if swap < res {
				return res != 0
			}
			occupied ^= SquareBB(bb.LSB())

		case stmAttackers&p.Pieces[stm][Bishop] != 0:
			bb = stmAttackers & p.Pieces[stm][Bishop]
			swap = PieceValue[Bishop] - swap
			if swap < res {
				return res != 0
			}
			occupied ^= SquareBB(bb.LSB())
			attackers |= getBishopAttacks(to, occupied) & (p.piecesBB(Bishop) | p.piecesBB(Queen))

		case stmAttackers&p.Pieces[stm][Rook] != 0:
			bb = stmAttackers & p.Pieces[stm][Rook]
			swap = PieceValue[Rook] - swap
			if swap < res {
				return res != 0
			}
			occupied ^= SquareBB(bb.LSB())
			attackers |= getRookAttacks(to, occupied) & (p.piecesBB(Rook) | p.piecesBB(Queen))

		case stmAttackers&p.Pieces[stm][Queen] != 0:
			bb = stmAttackers & p.Pieces[stm][Queen]
			swap = PieceValue[Queen] - swap
			if swap < res {
				return res != 0
			}
			occupied ^= SquareBB(bb.LSB())
			attackers |= (getBishopAttacks(to, occupied) & (p.piecesBB(Bishop) | p.piecesBB(Queen))) |
				(getRookAttacks(to, occupied) & (p.piecesBB(Rook) | p.piecesBB(Queen)))

		default:
			// King takes, which only stands if the other side has no
			// attacker left to answer with.
			if attackers&^p.Occupied[stm] != 0 {
				return res == 0
			}
			return res != 0
		}
	}

	return res != 0
}
