package chess

import (
	nchess "github.com/corentings/chess/v2"
)

const (
	featureSquareLimit    = 3
	featurePlacementLimit = 5
	endgamePieceThreshold = 10
)

// Placement is one occupied square of the position.
type Placement struct {
	Square string
	Piece  string
	Color  string
}

// MoveFeatures describes a candidate move and the position around it.
type MoveFeatures struct {
	Move            Move
	Piece           string
	From            string
	To              string
	Capture         bool
	Check           bool
	Pinned          bool
	AttackedSquares []string
	DefendedSquares []string
	PieceCount      int
	Endgame         bool
	Placements      []Placement
	OpeningCode     string
	OpeningName     string
}

// Phase names the game phase for prompts.
func (f MoveFeatures) Phase() string {
	if f.Endgame {
		return "endgame"
	}
	return "middlegame"
}

// Describe extracts the features of m in the current position. m must be legal.
func (b *Board) Describe(m Move) (MoveFeatures, error) {
	legal, ok := b.Resolve(m)
	if !ok {
		return MoveFeatures{}, ErrIllegalMove
	}
	pos := b.game.Position()
	board := pos.Board()
	mover := board.Piece(legal.From)
	side := pos.Turn()

	f := MoveFeatures{
		Move:  legal,
		Piece: PieceName(mover.Type()),
		From:  legal.From.String(),
		To:    legal.To.String(),
	}

	for _, mv := range b.game.ValidMoves() {
		if mv.S1() != legal.From || mv.S2() != legal.To || mv.Promo() != legal.Promo {
			continue
		}
		f.Capture = mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant)
		f.Check = mv.HasTag(nchess.Check)
		break
	}

	grid := snapshotGrid(board)
	f.AttackedSquares = attackedBy(grid, side.Other(), featureSquareLimit)
	f.DefendedSquares = attackedBy(grid, side, featureSquareLimit)
	f.Pinned = hasPinnedPiece(grid, side)

	for sq := 0; sq < 64; sq++ {
		p := grid[sq]
		if p == nchess.NoPiece {
			continue
		}
		if p.Color() == nchess.White {
			f.PieceCount++
		}
		if len(f.Placements) < featurePlacementLimit {
			f.Placements = append(f.Placements, Placement{
				Square: nchess.Square(sq).String(),
				Piece:  PieceName(p.Type()),
				Color:  ColorName(p.Color()),
			})
		}
	}
	f.Endgame = f.PieceCount <= endgamePieceThreshold
	f.OpeningCode, f.OpeningName = b.Opening()
	return f, nil
}

type grid64 [64]nchess.Piece

func snapshotGrid(board *nchess.Board) grid64 {
	var g grid64
	for sq := 0; sq < 64; sq++ {
		g[sq] = board.Piece(nchess.Square(sq))
	}
	return g
}

var (
	knightSteps  = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps    = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightRays = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalRays = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func squareIndex(file, rank int) (int, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}
	return rank*8 + file, true
}

// attackedBy lists, in square order, squares attacked by color c.
func attackedBy(g grid64, c nchess.Color, limit int) []string {
	var hit [64]bool
	for sq := 0; sq < 64; sq++ {
		p := g[sq]
		if p == nchess.NoPiece || p.Color() != c {
			continue
		}
		file, rank := sq%8, sq/8
		mark := func(f, r int) {
			if idx, ok := squareIndex(f, r); ok {
				hit[idx] = true
			}
		}
		switch p.Type() {
		case nchess.Pawn:
			dir := 1
			if c == nchess.Black {
				dir = -1
			}
			mark(file-1, rank+dir)
			mark(file+1, rank+dir)
		case nchess.Knight:
			for _, s := range knightSteps {
				mark(file+s[0], rank+s[1])
			}
		case nchess.King:
			for _, s := range kingSteps {
				mark(file+s[0], rank+s[1])
			}
		case nchess.Bishop:
			castRays(g, file, rank, diagonalRays, mark)
		case nchess.Rook:
			castRays(g, file, rank, straightRays, mark)
		case nchess.Queen:
			castRays(g, file, rank, diagonalRays, mark)
			castRays(g, file, rank, straightRays, mark)
		}
	}
	out := make([]string, 0, limit)
	for sq := 0; sq < 64 && len(out) < limit; sq++ {
		if hit[sq] {
			out = append(out, nchess.Square(sq).String())
		}
	}
	return out
}

func castRays(g grid64, file, rank int, rays [][2]int, mark func(f, r int)) {
	for _, d := range rays {
		f, r := file+d[0], rank+d[1]
		for {
			idx, ok := squareIndex(f, r)
			if !ok {
				break
			}
			mark(f, r)
			if g[idx] != nchess.NoPiece {
				break
			}
			f += d[0]
			r += d[1]
		}
	}
}

// hasPinnedPiece reports whether any piece of color c is pinned to its king.
func hasPinnedPiece(g grid64, c nchess.Color) bool {
	king := -1
	for sq := 0; sq < 64; sq++ {
		if p := g[sq]; p != nchess.NoPiece && p.Color() == c && p.Type() == nchess.King {
			king = sq
			break
		}
	}
	if king < 0 {
		return false
	}
	check := func(rays [][2]int, sliders ...nchess.PieceType) bool {
		for _, d := range rays {
			f, r := king%8+d[0], king/8+d[1]
			shielded := false
			for {
				idx, ok := squareIndex(f, r)
				if !ok {
					break
				}
				p := g[idx]
				if p != nchess.NoPiece {
					if p.Color() == c {
						if shielded {
							break
						}
						shielded = true
					} else {
						if shielded && (p.Type() == sliders[0] || p.Type() == sliders[1]) {
							return true
						}
						break
					}
				}
				f += d[0]
				r += d[1]
			}
		}
		return false
	}
	return check(straightRays, nchess.Rook, nchess.Queen) || check(diagonalRays, nchess.Bishop, nchess.Queen)
}
