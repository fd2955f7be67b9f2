package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/riddlechess/pkg/chessdto"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	return img
}

func pixelAtCell(img image.Image, c chessdto.Cell) color.RGBA {
	p := cellCenter(c, image.Point{X: sideMargin, Y: hudHeight})
	r, g, b, a := img.At(int(p.X), int(p.Y)).RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestRenderStartPosition(t *testing.T) {
	r := NewRenderer("")
	data, err := r.RenderPNG(context.Background(), chessdto.BoardView{Turn: "white", Difficulty: "easy"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, data)
	if got := img.Bounds().Size(); got != (image.Point{X: boardSize + 2*sideMargin, Y: hudHeight + boardSize + bottomSpace}) {
		t.Fatalf("unexpected size %v", got)
	}
	if got := pixelAtCell(img, chessdto.Cell{Row: 4, Col: 4}); got != lightSquare {
		t.Fatalf("empty e4 = %v, want %v", got, lightSquare)
	}
	if got := pixelAtCell(img, chessdto.Cell{Row: 4, Col: 5}); got != darkSquare {
		t.Fatalf("empty f4 = %v, want %v", got, darkSquare)
	}
	if got := pixelAtCell(img, chessdto.Cell{Row: 6, Col: 4}); got == lightSquare || got == darkSquare {
		t.Fatalf("e2 pawn not drawn: %v", got)
	}
}

func TestRenderRejectsBadFEN(t *testing.T) {
	if _, err := NewRenderer("").RenderPNG(context.Background(), chessdto.BoardView{FEN: "garbage"}); err == nil {
		t.Fatalf("expected fen error")
	}
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRenderer("").RenderPNG(ctx, chessdto.BoardView{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPieceDirOverride(t *testing.T) {
	dir := t.TempDir()
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45"><rect x="0" y="0" width="45" height="45" style="fill: #ff0000"/></svg>`
	if err := os.WriteFile(filepath.Join(dir, "wK.svg"), []byte(svg), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := NewRenderer(dir).RenderPNG(context.Background(), chessdto.BoardView{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if got := pixelAtCell(decode(t, data), chessdto.Cell{Row: 7, Col: 4}); got != (color.RGBA{255, 0, 0, 255}) {
		t.Fatalf("override king not used: %v", got)
	}
}

func TestSaveWritesSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	view := chessdto.BoardView{
		FEN:      "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2",
		Ply:      2,
		LastFrom: &chessdto.Cell{Row: 1, Col: 4},
		LastTo:   &chessdto.Cell{Row: 3, Col: 4},
		Selected: &chessdto.Cell{Row: 7, Col: 6},
	}
	path, err := NewRenderer("").Save(context.Background(), dir, view, now)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(path, "riddlechess-20240102-030405-ply002.png") {
		t.Fatalf("unexpected path %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	decode(t, raw)
}

func TestSanitizeSVG(t *testing.T) {
	got := string(sanitizeSVG([]byte(`style="fill: #fff;stroke: #000;fill:000000"`)))
	if got != `style="fill:#fff;stroke:#000;fill:#000000"` {
		t.Fatalf("sanitizeSVG = %s", got)
	}
}
