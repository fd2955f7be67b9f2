package game

import (
	nchess "github.com/corentings/chess/v2"

	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/pkg/chessdto"
)

func (c *Controller) view() chessdto.BoardView {
	white, black := c.board.Material()
	_, opening := c.board.Opening()
	v := chessdto.BoardView{
		GameID:     c.gameID,
		Glyphs:     c.board.Glyphs(),
		Turn:       corechess.ColorName(c.board.Turn()),
		FEN:        c.board.FEN(),
		Ply:        c.board.Ply(),
		Difficulty: string(c.difficulty),
		Opening:    opening,
		State:      c.state.String(),
		EngineOn:   !c.engineDown,
		Material:   chessdto.MaterialScore{White: white, Black: black},
	}
	if c.hasSelection {
		v.Selected = cellOf(c.selected)
	}
	if last, ok := c.board.LastMove(); ok {
		v.LastFrom = cellOf(last.From)
		v.LastTo = cellOf(last.To)
	}
	return v
}

// cellOf is the inverse of chess.SquareAt.
func cellOf(sq nchess.Square) *chessdto.Cell {
	return &chessdto.Cell{Row: 7 - int(sq.Rank()), Col: int(sq.File())}
}
