package chesspresenter

import (
	"github.com/park285/riddlechess/internal/service/game"
	"github.com/park285/riddlechess/pkg/chessdto"
)

// View is the drawing surface the presenter feeds.
type View interface {
	ShowBoard(view chessdto.BoardView, status, details string)
	ShowHint(text string)
	ShowGameOver(text string)
}

// Presenter turns controller events into formatted text for a View.
type Presenter struct {
	view      View
	formatter *Formatter
}

var _ game.Listener = (*Presenter)(nil)

func NewPresenter(view View, formatter *Formatter) *Presenter {
	return &Presenter{view: view, formatter: formatter}
}

func (p *Presenter) OnBoard(v chessdto.BoardView) {
	if p == nil || p.view == nil {
		return
	}
	p.view.ShowBoard(v, p.formatter.Status(v), p.formatter.Details(v))
}

func (p *Presenter) OnHint(text string) {
	if p == nil || p.view == nil {
		return
	}
	p.view.ShowHint(p.formatter.Hint(text))
}

func (p *Presenter) OnGameOver(result chessdto.GameResult) {
	if p == nil || p.view == nil {
		return
	}
	p.view.ShowGameOver(p.formatter.GameOver(result))
}

// OnState is covered by OnBoard, which always follows a transition.
func (p *Presenter) OnState(game.State) {}
