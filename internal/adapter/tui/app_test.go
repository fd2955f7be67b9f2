package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/park285/riddlechess/internal/adapter/chesspresenter"
	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/internal/domain"
	"github.com/park285/riddlechess/internal/msgcat"
	"github.com/park285/riddlechess/internal/service/game"
	"github.com/park285/riddlechess/pkg/chessdto"
)

func newTestUI(t *testing.T) *UI {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	factory := func(l game.Listener, _ game.Executor) *game.Controller {
		return game.New(nil, nil, l)
	}
	return New(chesspresenter.NewFormatter(cat), nil, factory, Options{})
}

func TestBoardCellMapping(t *testing.T) {
	var clicked []chessdto.Cell
	b := NewBoardWidget(func(row, col int) { clicked = append(clicked, chessdto.Cell{Row: row, Col: col}) })

	if _, _, ok := b.cellAt(5, 5); ok {
		t.Fatalf("cellAt before first draw should fail")
	}

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(80, 30)

	var glyphs [8][8]string
	glyphs[7][4] = "K"
	b.SetView(chessdto.BoardView{Glyphs: glyphs})
	w, h := b.Size()
	b.Box.SetRect(0, 0, w, h)
	b.Box.Draw(screen)

	ox, oy := 1+labelWidth, 1
	cases := []struct {
		x, y     int
		row, col int
		ok       bool
	}{
		{ox, oy, 0, 0, true},
		{ox + cellWidth - 1, oy + cellHeight - 1, 0, 0, true},
		{ox + 4*cellWidth + 2, oy + 7*cellHeight, 7, 4, true},
		{ox + 8*cellWidth, oy, 0, 0, false},
		{ox - 1, oy, 0, 0, false},
		{ox, oy + 8*cellHeight, 0, 0, false},
	}
	for _, tc := range cases {
		row, col, ok := b.cellAt(tc.x, tc.y)
		if ok != tc.ok || (ok && (row != tc.row || col != tc.col)) {
			t.Fatalf("cellAt(%d,%d) = (%d,%d,%v), want (%d,%d,%v)", tc.x, tc.y, row, col, ok, tc.row, tc.col, tc.ok)
		}
	}

	mainc, _, _, _ := screen.GetContent(ox+4*cellWidth+cellWidth/2, oy+7*cellHeight)
	if mainc != 'K' {
		t.Fatalf("king glyph = %q, want 'K'", mainc)
	}
	if label, _, _, _ := screen.GetContent(1, oy); label != '8' {
		t.Fatalf("rank label = %q, want '8'", label)
	}
}

func TestUIPlaysBothSidesWithoutEngine(t *testing.T) {
	u := newTestUI(t)
	u.play()

	if u.ctrl.State() != game.AwaitingSelection {
		t.Fatalf("state = %v, want awaiting_selection", u.ctrl.State())
	}
	if got := u.status.GetText(true); !strings.Contains(got, "White to move") {
		t.Fatalf("status = %q", got)
	}
	if got := u.details.GetText(true); !strings.Contains(got, "No engine found") {
		t.Fatalf("details = %q", got)
	}

	u.onCellClick(6, 4)
	u.onCellClick(4, 4)
	if u.last.Ply != 1 {
		t.Fatalf("ply = %d, want 1", u.last.Ply)
	}
	if got := u.status.GetText(true); !strings.Contains(got, "Black to move") {
		t.Fatalf("status after e4 = %q", got)
	}
}

func TestUIKeys(t *testing.T) {
	u := newTestUI(t)

	// keys are ignored until the welcome modal is dismissed
	ev := tcell.NewEventKey(tcell.KeyRune, '3', tcell.ModNone)
	if got := u.handleKey(ev); got != ev {
		t.Fatalf("welcome page swallowed key")
	}
	u.play()

	if got := u.handleKey(tcell.NewEventKey(tcell.KeyRune, '2', tcell.ModNone)); got != nil {
		t.Fatalf("difficulty key not consumed")
	}
	if u.ctrl.Difficulty() != corechess.Medium {
		t.Fatalf("difficulty = %s, want medium", u.ctrl.Difficulty())
	}

	u.onCellClick(6, 4)
	u.onCellClick(4, 4)
	u.handleKey(tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone))
	if u.last.Ply != 0 {
		t.Fatalf("ply after new game = %d, want 0", u.last.Ply)
	}

	other := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)
	if got := u.handleKey(other); got != other {
		t.Fatalf("unbound key should pass through")
	}
}

func TestUIGameOverModal(t *testing.T) {
	u := newTestUI(t)
	u.play()
	u.ShowGameOver("Black wins!")
	if name, _ := u.pages.GetFrontPage(); name != pageGameOver {
		t.Fatalf("front page = %q, want %q", name, pageGameOver)
	}
	if u.onGamePage() {
		t.Fatalf("keys should not reach the board while the modal is up")
	}
}

type fakeHistory struct {
	games []*domain.GameRecord
	err   error
	limit int
}

func (f *fakeHistory) GetRecentGames(_ context.Context, limit int) ([]*domain.GameRecord, error) {
	f.limit = limit
	return f.games, f.err
}

func TestUIHistoryModal(t *testing.T) {
	src := &fakeHistory{games: []*domain.GameRecord{{
		GameID:       "g1",
		Result:       "0-1",
		ResultMethod: "checkmate",
		Difficulty:   "hard",
		EndedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	u := newTestUI(t)
	u.history, u.historyLimit = src, 3
	u.exec = game.SyncExecutor{}
	u.play()

	if got := u.handleKey(tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone)); got != nil {
		t.Fatalf("history key not consumed")
	}
	if src.limit != 3 {
		t.Fatalf("limit = %d, want 3", src.limit)
	}
	if name, _ := u.pages.GetFrontPage(); name != pageHistory {
		t.Fatalf("front page = %q, want %q", name, pageHistory)
	}

	src.err = errors.New("db down")
	u.pages.RemovePage(pageHistory)
	u.handleKey(tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone))
	if name, _ := u.pages.GetFrontPage(); name != pageHistory {
		t.Fatalf("history modal should still open on error, front = %q", name)
	}
}
