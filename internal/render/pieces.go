package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece outlines on a 45x45 canvas. DETAIL is replaced by the colour used for
// eyes and crosses.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `
<circle cx="22.5" cy="13" r="5"/>
<path d="M 22.5 17 C 17 20 15 27 14 35 L 31 35 C 30 27 28 20 22.5 17 Z"/>`,
	nchess.Rook: `
<path d="M 11 14 L 11 9 L 15 9 L 15 11 L 20 11 L 20 9 L 25 9 L 25 11 L 30 11 L 30 9 L 34 9 L 34 14 Z"/>
<path d="M 14 14 L 31 14 L 30 31 L 15 31 Z"/>
<path d="M 12 31 L 33 31 L 33 35 L 12 35 Z"/>`,
	nchess.Knight: `
<path d="M 22 10 C 32.5 11 38.5 18 38 35 L 15 35 C 15 26 25 28 23 18 C 21 21 17 22 15 24 C 13 26 10 26 9 24 C 8 21 12 18 14 15 C 16 12 18 10 22 10 Z"/>
<circle cx="15" cy="17" r="1.2" fill="DETAIL" stroke="none"/>`,
	nchess.Bishop: `
<circle cx="22.5" cy="7" r="2.5"/>
<path d="M 22.5 9.5 C 16 15 14 22 17 28 L 28 28 C 31 22 29 15 22.5 9.5 Z"/>
<path d="M 20 17 L 25 17 M 22.5 14.5 L 22.5 19.5" fill="none" stroke="DETAIL"/>
<path d="M 15 28 L 30 28 L 31 31 L 14 31 Z"/>`,
	nchess.Queen: `
<circle cx="12" cy="11" r="2"/>
<circle cx="22.5" cy="9" r="2"/>
<circle cx="33" cy="11" r="2"/>
<path d="M 9 26 L 12 13 L 17 24 L 22.5 11 L 28 24 L 33 13 L 36 26 C 30 24 15 24 9 26 Z"/>
<path d="M 9 26 C 15 24 30 24 36 26 L 33 35 L 12 35 Z"/>`,
	nchess.King: `
<path d="M 21 5 L 24 5 L 24 8 L 27 8 L 27 11 L 24 11 L 24 15 L 21 15 L 21 11 L 18 11 L 18 8 L 21 8 Z"/>
<path d="M 22.5 15 C 30 15 37 20 34 28 L 32 35 L 13 35 L 11 28 C 8 20 15 15 22.5 15 Z"/>`,
}

const pieceSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">
<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">%s
<path d="M 9 35 L 36 35 L 36 39 L 9 39 Z"/>
</g>
</svg>`

func builtinPieceSVG(piece nchess.Piece) ([]byte, error) {
	shape, ok := pieceShapes[piece.Type()]
	if !ok {
		return nil, fmt.Errorf("no outline for piece %v", piece)
	}
	body, outline, detail := "#f4f1ea", "#1b1b1b", "#1b1b1b"
	if piece.Color() == nchess.Black {
		body, outline, detail = "#242424", "#e8e2d4", "#e8e2d4"
	}
	inner := strings.ReplaceAll(shape, "DETAIL", detail)
	return []byte(fmt.Sprintf(pieceSVG, body, outline, inner)), nil
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

type pieceSet struct {
	dir string

	mu    sync.RWMutex
	cache map[pieceCacheKey]image.Image
}

func newPieceSet(dir string) *pieceSet {
	return &pieceSet{dir: dir, cache: make(map[pieceCacheKey]image.Image)}
}

// source prefers <dir>/wK.svg style files and falls back to the built-in set.
func (s *pieceSet) source(piece nchess.Piece) ([]byte, error) {
	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, pieceAssetName(piece)))
		if err == nil {
			return sanitizeSVG(data), nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read piece asset: %w", err)
		}
	}
	return builtinPieceSVG(piece)
}

func (s *pieceSet) image(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	s.mu.RLock()
	if img, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return img, nil
	}
	s.mu.RUnlock()

	data, err := s.source(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	s.mu.Lock()
	s.cache[key] = img
	s.mu.Unlock()
	return img, nil
}

func pieceAssetName(piece nchess.Piece) string {
	prefix := "w"
	if piece.Color() == nchess.Black {
		prefix = "b"
	}
	var suffix string
	switch piece.Type() {
	case nchess.King:
		suffix = "K"
	case nchess.Queen:
		suffix = "Q"
	case nchess.Rook:
		suffix = "R"
	case nchess.Bishop:
		suffix = "B"
	case nchess.Knight:
		suffix = "N"
	case nchess.Pawn:
		suffix = "P"
	}
	return prefix + suffix + ".svg"
}
