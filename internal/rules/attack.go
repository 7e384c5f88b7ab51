package rules

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightRay = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalRay = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func findKing(board map[Square]Piece, side Side) Square {
	for sq, p := range board {
		if p.Kind == King && p.Side == side {
			return sq
		}
	}
	return NoSquare
}

// attacked reports whether any piece of side by attacks target.
func attacked(board map[Square]Piece, target Square, by Side) bool {
	f, r := target.File(), target.Rank()

	pawnRank := r - 1
	if by == Black {
		pawnRank = r + 1
	}
	for _, df := range [2]int{-1, 1} {
		if p, ok := board[NewSquare(f+df, pawnRank)]; ok && p == (Piece{Side: by, Kind: Pawn}) {
			return true
		}
	}

	for _, st := range knightSteps {
		if p, ok := board[NewSquare(f+st[0], r+st[1])]; ok && p == (Piece{Side: by, Kind: Knight}) {
			return true
		}
	}
	for _, st := range kingSteps {
		if p, ok := board[NewSquare(f+st[0], r+st[1])]; ok && p == (Piece{Side: by, Kind: King}) {
			return true
		}
	}

	if rayHits(board, f, r, straightRay[:], by, Rook) || rayHits(board, f, r, diagonalRay[:], by, Bishop) {
		return true
	}
	return false
}

// rayHits walks each direction until the first piece; slider or a queen of side by counts.
func rayHits(board map[Square]Piece, f, r int, dirs [][2]int, by Side, slider PieceKind) bool {
	for _, d := range dirs {
		for x, y := f+d[0], r+d[1]; ; x, y = x+d[0], y+d[1] {
			sq := NewSquare(x, y)
			if sq == NoSquare {
				break
			}
			p, ok := board[sq]
			if !ok {
				continue
			}
			if p.Side == by && (p.Kind == slider || p.Kind == Queen) {
				return true
			}
			break
		}
	}
	return false
}
