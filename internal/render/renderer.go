package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/riddlechess/pkg/chessdto"
)

const (
	squareSize  = 64
	sideMargin  = 28
	hudHeight   = 40
	bottomSpace = 24
	boardSize   = squareSize * 8
)

var (
	lightSquare          = color.RGBA{233, 207, 163, 255}
	darkSquare           = color.RGBA{187, 136, 96, 255}
	backgroundColor      = color.RGBA{22, 24, 36, 255}
	selectionFill        = color.NRGBA{R: 120, G: 200, B: 140, A: 150}
	humanMoveFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	engineMoveArrow      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	hudTextPrimary       = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextSecondary     = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextColour = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// Renderer draws a BoardView to PNG.
type Renderer struct {
	pieces *pieceSet
}

// NewRenderer uses SVGs from pieceDir when present, else the built-in set.
func NewRenderer(pieceDir string) *Renderer {
	return &Renderer{pieces: newPieceSet(strings.TrimSpace(pieceDir))}
}

func (r *Renderer) RenderPNG(ctx context.Context, view chessdto.BoardView) ([]byte, error) {
	board, err := boardFromFEN(view.FEN)
	if err != nil {
		return nil, err
	}

	totalWidth := boardSize + sideMargin*2
	totalHeight := hudHeight + boardSize + bottomSpace
	origin := image.Point{X: sideMargin, Y: hudHeight}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, view)
	drawSquares(img, origin)
	drawLastMove(img, board, view, origin)
	if view.Selected != nil {
		drawCellOverlay(img, *view.Selected, origin, selectionFill)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes a timestamped snapshot under dir and returns its path.
func (r *Renderer) Save(ctx context.Context, dir string, view chessdto.BoardView, now time.Time) (string, error) {
	data, err := r.RenderPNG(ctx, view)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	name := fmt.Sprintf("riddlechess-%s-ply%03d.png", now.Format("20060102-150405"), view.Ply)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

func boardFromFEN(fen string) (*nchess.Board, error) {
	if strings.TrimSpace(fen) == "" {
		return nchess.NewGame().Position().Board(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return nchess.NewGame(opt).Position().Board(), nil
}

func drawHUD(img *image.RGBA, view chessdto.BoardView) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}

	title := "Riddle Chess"
	if view.Difficulty != "" {
		title += " | " + view.Difficulty
	}
	drawer.Src = image.NewUniform(hudTextPrimary)
	drawer.Dot = fixed.P(sideMargin, 18)
	drawer.DrawString(title)

	var sub []string
	if view.Turn != "" {
		sub = append(sub, view.Turn+" to move")
	}
	if view.Opening != "" {
		sub = append(sub, view.Opening)
	}
	drawer.Src = image.NewUniform(hudTextSecondary)
	drawer.Dot = fixed.P(sideMargin, 33)
	drawer.DrawString(strings.Join(sub, " | "))
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			clr := color.Color(lightSquare)
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, cellRect(chessdto.Cell{Row: row, Col: col}, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *Renderer) drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := r.pieces.image(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, cellRect(cellOf(sq), origin), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawLastMove fills the squares of a White move and draws an arrow for a
// Black one.
func drawLastMove(img *image.RGBA, board *nchess.Board, view chessdto.BoardView, origin image.Point) {
	if view.LastFrom == nil || view.LastTo == nil {
		return
	}
	mover := nchess.NoColor
	if sq, ok := squareOf(*view.LastTo); ok {
		if p := board.Piece(sq); p != nchess.NoPiece {
			mover = p.Color()
		}
	}
	if mover == nchess.White {
		drawCellOverlay(img, *view.LastFrom, origin, humanMoveFill)
		drawCellOverlay(img, *view.LastTo, origin, humanMoveFill)
		return
	}
	drawArrow(img, *view.LastFrom, *view.LastTo, origin, engineMoveArrow)
}

func drawCellOverlay(img *image.RGBA, c chessdto.Cell, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, cellRect(c, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to chessdto.Cell, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	start := cellCenter(from, origin)
	end := cellCenter(to, origin)
	dx, dy := end.X-start.X, end.Y-start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - squareSize*0.45
	if baseLength < squareSize*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := squareSize * 0.09
	headHalf := squareSize * 0.16
	baseX, baseY := start.X+dirX*baseLength, start.Y+dirY*baseLength

	bounds := img.Bounds()
	scanner := rasterx.NewScannerGV(bounds.Dx(), bounds.Dy(), img, bounds)
	filler := rasterx.NewFiller(bounds.Dx(), bounds.Dy(), scanner)
	filler.SetColor(clr)

	filler.Start(rasterx.ToFixedP(start.X-perpX*halfWidth, start.Y-perpY*halfWidth))
	filler.Line(rasterx.ToFixedP(baseX-perpX*halfWidth, baseY-perpY*halfWidth))
	filler.Line(rasterx.ToFixedP(baseX-perpX*headHalf, baseY-perpY*headHalf))
	filler.Line(rasterx.ToFixedP(end.X, end.Y))
	filler.Line(rasterx.ToFixedP(baseX+perpX*headHalf, baseY+perpY*headHalf))
	filler.Line(rasterx.ToFixedP(baseX+perpX*halfWidth, baseY+perpY*halfWidth))
	filler.Line(rasterx.ToFixedP(start.X+perpX*halfWidth, start.Y+perpY*halfWidth))
	filler.Stop(true)
	filler.Draw()
}

func drawCoordinates(dst imagedraw.Image, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColour)}
	ascent := face.Metrics().Ascent.Ceil()

	for i := 0; i < 8; i++ {
		rankLabel := string(rune('8' - i))
		rankCenter := origin.Y + i*squareSize + squareSize/2
		drawCenteredText(drawer, rankLabel, origin.X-sideMargin/2, rankCenter+ascent/2)

		fileLabel := string(rune('a' + i))
		fileCenter := origin.X + i*squareSize + squareSize/2
		drawCenteredText(drawer, fileLabel, fileCenter, origin.Y+boardSize+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

type pointF struct {
	X float64
	Y float64
}

func cellRect(c chessdto.Cell, origin image.Point) image.Rectangle {
	x := origin.X + c.Col*squareSize
	y := origin.Y + c.Row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func cellCenter(c chessdto.Cell, origin image.Point) pointF {
	r := cellRect(c, origin)
	return pointF{X: float64(r.Min.X) + squareSize/2, Y: float64(r.Min.Y) + squareSize/2}
}

func cellOf(sq nchess.Square) chessdto.Cell {
	return chessdto.Cell{Row: 7 - int(sq.Rank()), Col: int(sq.File())}
}

func squareOf(c chessdto.Cell) (nchess.Square, bool) {
	if c.Row < 0 || c.Row > 7 || c.Col < 0 || c.Col > 7 {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(c.Col), nchess.Rank(7-c.Row)), true
}
