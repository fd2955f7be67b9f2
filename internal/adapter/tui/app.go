package tui

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/park285/riddlechess/internal/adapter/chesspresenter"
	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/internal/domain"
	"github.com/park285/riddlechess/internal/render"
	"github.com/park285/riddlechess/internal/service/game"
	"github.com/park285/riddlechess/pkg/chessdto"
)

const (
	pageWelcome  = "welcome"
	pageGame     = "game"
	pageGameOver = "gameover"
	pageHistory  = "history"

	historyTimeout = 5 * time.Second
)

// ControllerFactory builds the controller once the UI can receive its events.
type ControllerFactory func(listener game.Listener, exec game.Executor) *game.Controller

// HistorySource lists finished games, newest first.
type HistorySource interface {
	GetRecentGames(ctx context.Context, limit int) ([]*domain.GameRecord, error)
}

type Options struct {
	SnapshotDir  string
	History      HistorySource
	HistoryLimit int
	Logger       *zap.Logger
}

// UI is the terminal front end. Every method except Run and Stop must be
// called on the tview event loop.
type UI struct {
	app     *tview.Application
	pages   *tview.Pages
	board   *BoardWidget
	status  *tview.TextView
	details *tview.TextView
	hint    *tview.TextView
	keys    *tview.TextView

	formatter *chesspresenter.Formatter
	renderer  *render.Renderer
	ctrl      *game.Controller
	exec      game.Executor

	snapshotDir  string
	history      HistorySource
	historyLimit int
	logger       *zap.Logger
	ctx          context.Context
	last         chessdto.BoardView
	started      bool
}

var _ chesspresenter.View = (*UI)(nil)

func New(formatter *chesspresenter.Formatter, renderer *render.Renderer, factory ControllerFactory, opts Options) *UI {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &UI{
		app:          tview.NewApplication(),
		pages:        tview.NewPages(),
		formatter:    formatter,
		renderer:     renderer,
		snapshotDir:  opts.SnapshotDir,
		history:      opts.History,
		historyLimit: opts.HistoryLimit,
		logger:       logger,
		ctx:          context.Background(),
	}
	u.exec = game.AsyncExecutor{Post: func(f func()) { u.app.QueueUpdateDraw(f) }}
	u.board = NewBoardWidget(u.onCellClick)
	u.status = newPanel("")
	u.details = newPanel("")
	u.hint = newPanel(" " + formatter.Label("hint_title") + " ")
	u.hint.SetWordWrap(true)
	u.hint.SetText(formatter.Hint(""))
	u.keys = tview.NewTextView().SetText(formatter.Keys())

	u.ctrl = factory(chesspresenter.NewPresenter(u, formatter), u.exec)

	bw, bh := u.board.Size()
	side := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.status, 3, 0, false).
		AddItem(u.details, 6, 0, false).
		AddItem(u.hint, 0, 1, false)
	body := tview.NewFlex().
		AddItem(u.board.Box, bw, 0, true).
		AddItem(side, 0, 1, false)
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, bh, 1, true).
		AddItem(u.keys, 1, 0, false)

	welcome := tview.NewModal().
		SetText(formatter.Welcome()).
		AddButtons([]string{formatter.Label("play"), formatter.Label("quit")}).
		SetDoneFunc(func(index int, _ string) {
			if index != 0 {
				u.quit()
				return
			}
			u.play()
		})

	u.pages.AddPage(pageGame, layout, true, false)
	u.pages.AddPage(pageWelcome, welcome, true, true)
	u.app.SetInputCapture(u.handleKey)
	return u
}

func newPanel(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(false)
	tv.SetBorder(true)
	if title != "" {
		tv.SetTitle(title).SetTitleAlign(tview.AlignLeft)
	}
	return tv
}

// Run blocks until the user quits or ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	u.ctx = ctx
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			u.quit()
		case <-done:
		}
	}()
	return u.app.SetRoot(u.pages, true).EnableMouse(true).Run()
}

// quit ends Run; it is safe to call from any goroutine.
func (u *UI) quit() { u.app.Stop() }

func (u *UI) play() {
	u.pages.SwitchToPage(pageGame)
	u.app.SetFocus(u.board.Box)
	if u.started {
		return
	}
	u.started = true
	u.ctrl.Start(u.ctx)
}

func (u *UI) onCellClick(row, col int) {
	if !u.onGamePage() {
		return
	}
	u.ctrl.Click(row, col)
}

func (u *UI) onGamePage() bool {
	name, _ := u.pages.GetFrontPage()
	return name == pageGame
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if !u.onGamePage() || event.Key() != tcell.KeyRune {
		return event
	}
	switch r := event.Rune(); r {
	case '1', '2', '3':
		d := corechess.Difficulties[int(r-'1')]
		if err := u.ctrl.SetDifficulty(d); err != nil {
			u.logger.Debug("difficulty_rejected", zap.String("difficulty", string(d)), zap.Error(err))
		}
	case 'n':
		u.ctrl.NewGame()
	case 's':
		u.snapshot()
	case 'h':
		u.showHistory()
	case 'q':
		u.quit()
	default:
		return event
	}
	return nil
}

func (u *UI) snapshot() {
	if u.renderer == nil {
		return
	}
	view, dir, ctx := u.last, u.snapshotDir, u.ctx
	u.exec.Run(func() func() {
		path, err := u.renderer.Save(ctx, dir, view, time.Now())
		return func() {
			if err != nil {
				u.logger.Warn("snapshot_failed", zap.String("dir", dir), zap.Error(err))
				u.status.SetText(err.Error())
				return
			}
			u.logger.Info("snapshot_saved", zap.String("path", path))
			u.status.SetText(u.formatter.SnapshotSaved(path))
		}
	})
}

func (u *UI) showHistory() {
	if u.history == nil {
		return
	}
	limit := u.historyLimit
	if limit <= 0 {
		limit = 10
	}
	src, ctx := u.history, u.ctx
	u.exec.Run(func() func() {
		qctx, cancel := context.WithTimeout(ctx, historyTimeout)
		defer cancel()
		games, err := src.GetRecentGames(qctx, limit)
		return func() {
			text := u.formatter.History(chesspresenter.ToGameSummaries(games))
			if err != nil {
				u.logger.Warn("history_failed", zap.Error(err))
				text = err.Error()
			}
			u.showHistoryModal(text)
		}
	})
}

func (u *UI) showHistoryModal(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{u.formatter.Label("ok")}).
		SetDoneFunc(func(int, string) {
			u.pages.RemovePage(pageHistory)
			u.app.SetFocus(u.board.Box)
		})
	u.pages.AddPage(pageHistory, modal, false, true)
}

func (u *UI) ShowBoard(view chessdto.BoardView, status, details string) {
	u.last = view
	u.board.SetView(view)
	u.status.SetText(status)
	u.details.SetText(details)
}

func (u *UI) ShowHint(text string) {
	u.hint.SetText(text)
}

func (u *UI) ShowGameOver(text string) {
	modal := tview.NewModal().
		SetText(strings.TrimSpace(text)).
		AddButtons([]string{u.formatter.Label("new_game"), u.formatter.Label("quit")}).
		SetDoneFunc(func(index int, _ string) {
			u.pages.RemovePage(pageGameOver)
			switch index {
			case 0:
				u.ctrl.NewGame()
			case 1:
				u.quit()
				return
			}
			u.app.SetFocus(u.board.Box)
		})
	u.pages.AddPage(pageGameOver, modal, false, true)
}
