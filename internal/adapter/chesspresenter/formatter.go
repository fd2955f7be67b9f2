package chesspresenter

import (
	"fmt"
	"strings"
	"time"

	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/internal/msgcat"
	"github.com/park285/riddlechess/pkg/chessdto"
)

const materialScoreNeutral = 39

var glyphNames = map[string]string{
	"♙": "Pawn", "♘": "Knight", "♗": "Bishop", "♖": "Rook", "♕": "Queen", "♔": "King",
	"♟": "Pawn", "♞": "Knight", "♝": "Bishop", "♜": "Rook", "♛": "Queen", "♚": "King",
}

// Formatter renders controller output into terminal text using the message
// catalog.
type Formatter struct {
	catalog *msgcat.Catalog
}

func NewFormatter(catalog *msgcat.Catalog) *Formatter {
	return &Formatter{catalog: catalog}
}

func (f *Formatter) render(key string, data any) string {
	if f == nil || f.catalog == nil {
		return ""
	}
	out, err := f.catalog.Render(key, data)
	if err != nil {
		return ""
	}
	return out
}

func (f *Formatter) Title() string   { return f.render("ui.title", nil) }
func (f *Formatter) Welcome() string { return f.render("ui.welcome", nil) }
func (f *Formatter) Keys() string    { return f.render("ui.keys", nil) }

func (f *Formatter) Label(key string) string { return f.render("ui."+key, nil) }

// Status is the one-line prompt under the board.
func (f *Formatter) Status(view chessdto.BoardView) string {
	data := map[string]any{
		"Side":   capitalize(view.Turn),
		"Piece":  "",
		"Square": "",
	}
	if sel := view.Selected; sel != nil {
		data["Square"] = CellName(*sel)
		if sel.Row >= 0 && sel.Row < 8 && sel.Col >= 0 && sel.Col < 8 {
			data["Piece"] = glyphNames[view.Glyphs[sel.Row][sel.Col]]
		}
	}
	return f.render("ui.state."+view.State, data)
}

// Details lists difficulty, opening and material under the status line.
func (f *Formatter) Details(view chessdto.BoardView) string {
	var sb strings.Builder
	sb.WriteString(f.Difficulty(view.Difficulty))
	if view.Opening != "" {
		sb.WriteString("\n")
		sb.WriteString(view.Opening)
	}
	if m := formatMaterial(view.Material); m != "" {
		sb.WriteString("\nMaterial: ")
		sb.WriteString(m)
	}
	if !view.EngineOn {
		sb.WriteString("\n")
		sb.WriteString(f.render("ui.engine_offline", nil))
	}
	return sb.String()
}

func (f *Formatter) Difficulty(level string) string {
	return f.render("ui.difficulty", map[string]any{"Label": corechess.Difficulty(level).Label()})
}

func (f *Formatter) Hint(text string) string {
	if strings.TrimSpace(text) == "" {
		return f.render("ui.hint_empty", nil)
	}
	return text
}

func (f *Formatter) SnapshotSaved(path string) string {
	return f.render("ui.snapshot_saved", map[string]any{"Path": path})
}

func (f *Formatter) GameOver(result chessdto.GameResult) string {
	text := result.Text
	if result.Method != "" && result.Method != "checkmate" && result.Method != "stalemate" {
		text += " (" + strings.ReplaceAll(result.Method, "_", " ") + ")"
	}
	return text
}

func (f *Formatter) History(games []*chessdto.GameSummary) string {
	if len(games) == 0 {
		return f.render("history.empty", nil)
	}
	var sb strings.Builder
	sb.WriteString(f.HistoryHeader(len(games)))
	for _, g := range games {
		sb.WriteByte('\n')
		sb.WriteString(f.HistoryRow(g))
	}
	return sb.String()
}

func (f *Formatter) HistoryHeader(count int) string {
	return f.render("history.header", map[string]any{"Count": count})
}

func (f *Formatter) HistoryRow(g *chessdto.GameSummary) string {
	if g == nil {
		return ""
	}
	opening := g.Opening
	if opening == "" {
		opening = "-"
	}
	method := strings.ReplaceAll(g.Method, "_", " ")
	if d := formatGameDuration(g.Duration); d != "" {
		method += " in " + d
	}
	return f.render("history.row", map[string]any{
		"EndedAt":    formatShortTime(g.EndedAt),
		"Result":     g.Result,
		"Method":     method,
		"Difficulty": g.Difficulty,
		"Moves":      g.Plies,
		"Opening":    opening,
	})
}

// CellName converts a screen cell to algebraic notation.
func CellName(c chessdto.Cell) string {
	if c.Row < 0 || c.Row > 7 || c.Col < 0 || c.Col > 7 {
		return ""
	}
	return fmt.Sprintf("%c%d", 'a'+c.Col, 8-c.Row)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatMaterial(score chessdto.MaterialScore) string {
	whiteCaptured := materialScoreNeutral - score.Black
	blackCaptured := materialScoreNeutral - score.White
	if whiteCaptured < 0 {
		whiteCaptured = 0
	}
	if blackCaptured < 0 {
		blackCaptured = 0
	}

	var parts []string
	if whiteCaptured > 0 {
		parts = append(parts, fmt.Sprintf("White +%d", whiteCaptured))
	}
	if blackCaptured > 0 {
		parts = append(parts, fmt.Sprintf("Black +%d", blackCaptured))
	}
	return strings.Join(parts, " / ")
}
