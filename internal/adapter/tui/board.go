package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/park285/riddlechess/pkg/chessdto"
)

const (
	cellWidth  = 5
	cellHeight = 2
	labelWidth = 2
)

var (
	lightSquare   = tcell.NewRGBColor(233, 207, 163)
	darkSquare    = tcell.NewRGBColor(187, 136, 96)
	selectedColor = tcell.NewRGBColor(120, 200, 140)
	lastMoveColor = tcell.NewRGBColor(235, 215, 110)
	pieceColor    = tcell.NewRGBColor(20, 20, 20)
	labelColor    = tcell.NewRGBColor(8, 214, 120)
)

// BoardWidget draws the 8x8 grid and turns mouse clicks into cells.
type BoardWidget struct {
	Box     *tview.Box
	view    chessdto.BoardView
	onClick func(row, col int)

	// top-left of the squares as of the last draw
	originX int
	originY int
}

func NewBoardWidget(onClick func(row, col int)) *BoardWidget {
	b := &BoardWidget{Box: tview.NewBox(), onClick: onClick, originX: -1, originY: -1}
	b.Box.SetBorder(true).SetTitle(" Board ").SetTitleAlign(tview.AlignLeft)
	b.Box.SetDrawFunc(b.draw)
	b.Box.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		if action != tview.MouseLeftClick || event == nil {
			return action, event
		}
		x, y := event.Position()
		row, col, ok := b.cellAt(x, y)
		if !ok {
			return action, event
		}
		if b.onClick != nil {
			b.onClick(row, col)
		}
		return action, nil
	})
	return b
}

// Size is the outer width and height including the border.
func (b *BoardWidget) Size() (int, int) {
	return labelWidth + 8*cellWidth + 2, 8*cellHeight + 1 + 2
}

func (b *BoardWidget) SetView(v chessdto.BoardView) { b.view = v }

func (b *BoardWidget) cellAt(x, y int) (int, int, bool) {
	if b.originX < 0 {
		return 0, 0, false
	}
	dx, dy := x-b.originX, y-b.originY
	if dx < 0 || dy < 0 {
		return 0, 0, false
	}
	col, row := dx/cellWidth, dy/cellHeight
	if col > 7 || row > 7 {
		return 0, 0, false
	}
	return row, col, true
}

func (b *BoardWidget) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	// x, y, width and height are the outer rect; stay inside the border.
	ix, iy := x+1, y+1
	b.originX, b.originY = ix+labelWidth, iy
	labelStyle := tcell.StyleDefault.Foreground(labelColor)

	for row := 0; row < 8; row++ {
		top := b.originY + row*cellHeight
		screen.SetContent(ix, top, rune('8'-row), nil, labelStyle)
		for col := 0; col < 8; col++ {
			left := b.originX + col*cellWidth
			style := tcell.StyleDefault.Background(b.squareColor(row, col)).Foreground(pieceColor)
			for dy := 0; dy < cellHeight; dy++ {
				for dx := 0; dx < cellWidth; dx++ {
					screen.SetContent(left+dx, top+dy, ' ', nil, style)
				}
			}
			if glyph := []rune(b.view.Glyphs[row][col]); len(glyph) > 0 {
				screen.SetContent(left+cellWidth/2, top+(cellHeight-1)/2, glyph[0], nil, style)
			}
		}
	}
	bottom := b.originY + 8*cellHeight
	for col := 0; col < 8; col++ {
		screen.SetContent(b.originX+col*cellWidth+cellWidth/2, bottom, rune('a'+col), nil, labelStyle)
	}
	return ix, iy, width - 2, height - 2
}

func (b *BoardWidget) squareColor(row, col int) tcell.Color {
	cell := chessdto.Cell{Row: row, Col: col}
	switch {
	case b.view.Selected != nil && *b.view.Selected == cell:
		return selectedColor
	case b.view.LastFrom != nil && *b.view.LastFrom == cell,
		b.view.LastTo != nil && *b.view.LastTo == cell:
		return lastMoveColor
	case (row+col)%2 == 1:
		return darkSquare
	default:
		return lightSquare
	}
}
