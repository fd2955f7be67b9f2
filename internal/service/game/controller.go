package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/internal/domain"
	"github.com/park285/riddlechess/internal/hint"
	"github.com/park285/riddlechess/internal/msgcat"
	"github.com/park285/riddlechess/pkg/chessdto"
)

var ErrGameOver = errors.New("game is over")

const persistTimeout = 5 * time.Second

// Searcher picks the opponent's reply.
type Searcher interface {
	Available() bool
	Configure(d corechess.Difficulty) error
	BestMove(ctx context.Context, fen string, d corechess.Difficulty, budget time.Duration) (corechess.Move, error)
}

// HintSource writes a riddle for the side to move.
type HintSource interface {
	Suggest(ctx context.Context, fen string, d corechess.Difficulty) (hint.Hint, error)
}

// Recorder stores finished games.
type Recorder interface {
	InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error)
}

// Listener receives controller output. Calls arrive on the loop goroutine.
type Listener interface {
	OnBoard(view chessdto.BoardView)
	OnHint(text string)
	OnGameOver(result chessdto.GameResult)
	OnState(state State)
}

type nopListener struct{}

func (nopListener) OnBoard(chessdto.BoardView)     {}
func (nopListener) OnHint(string)                  {}
func (nopListener) OnGameOver(chessdto.GameResult) {}
func (nopListener) OnState(State)                  {}

type Option func(*Controller)

func WithExecutor(e Executor) Option {
	return func(c *Controller) {
		if e != nil {
			c.exec = e
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithCatalog renders game-over text from the gameover.* messages.
func WithCatalog(cat *msgcat.Catalog) Option {
	return func(c *Controller) { c.catalog = cat }
}

// WithHintDelay holds the riddle back for d after the engine replies.
func WithHintDelay(d time.Duration) Option {
	return func(c *Controller) { c.hintDelay = d }
}

func WithDifficulty(d corechess.Difficulty) Option {
	return func(c *Controller) { c.difficulty = d }
}

// WithClock replaces time.Now for game start and end stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller is the turn-cycle state machine. Every exported method and
// every continuation runs on one loop goroutine; only Executor tasks leave it.
type Controller struct {
	board    *corechess.Board
	engine   Searcher
	hints    HintSource
	recorder Recorder
	catalog  *msgcat.Catalog
	exec     Executor
	listener Listener
	logger   *zap.Logger
	now      func() time.Time

	hintDelay time.Duration
	ctx       context.Context

	state        State
	selected     nchess.Square
	hasSelection bool
	difficulty   corechess.Difficulty
	engineDown   bool

	hint        string
	hintPending bool
	hintSeq     uint64

	// epoch increments on New Game; continuations from older epochs are dropped.
	epoch uint64

	gameID     string
	startedAt  time.Time
	hintsShown int
	result     *chessdto.GameResult
}

// New builds a controller around a fresh board. engine and hints may be nil.
func New(engine Searcher, hints HintSource, listener Listener, opts ...Option) *Controller {
	if listener == nil {
		listener = nopListener{}
	}
	c := &Controller{
		board:      corechess.NewBoard(),
		engine:     engine,
		hints:      hints,
		exec:       SyncExecutor{},
		listener:   listener,
		logger:     zap.NewNop(),
		now:        time.Now,
		ctx:        context.Background(),
		difficulty: corechess.Easy,
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := corechess.GetPreset(c.difficulty); err != nil {
		c.difficulty = corechess.Easy
	}
	if engine == nil || !engine.Available() {
		c.engineDown = true
	}
	if engine != nil {
		if err := engine.Configure(c.difficulty); err != nil {
			c.logger.Warn("engine_configure_failed", zap.Error(err))
		}
	}
	c.resetGame()
	return c
}

// Start binds ctx to every engine and hint call and publishes the opening
// position.
func (c *Controller) Start(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
	c.logger.Info("game_started",
		zap.String("game_id", c.gameID),
		zap.String("difficulty", string(c.difficulty)),
		zap.Bool("engine", !c.engineDown),
	)
	c.state = AwaitingSelection
	c.listener.OnState(c.state)
	c.emitBoard()
}

func (c *Controller) State() State                     { return c.state }
func (c *Controller) Difficulty() corechess.Difficulty { return c.difficulty }
func (c *Controller) Hint() string                     { return c.hint }
func (c *Controller) GameID() string                   { return c.gameID }
func (c *Controller) EngineDown() bool                 { return c.engineDown }
func (c *Controller) FEN() string                      { return c.board.FEN() }
func (c *Controller) View() chessdto.BoardView         { return c.view() }

// Result is the final outcome, nil until the game ends.
func (c *Controller) Result() *chessdto.GameResult {
	if c.result == nil {
		return nil
	}
	r := *c.result
	return &r
}

// Click handles a press on screen cell (row, col), row 0 being rank 8.
func (c *Controller) Click(row, col int) {
	if !c.state.acceptsClicks() {
		return
	}
	sq, ok := corechess.SquareAt(row, col)
	if !ok {
		return
	}

	if !c.hasSelection {
		piece := c.board.PieceAt(sq)
		if piece == nchess.NoPiece || piece.Color() != c.board.Turn() {
			return
		}
		c.selected = sq
		c.hasSelection = true
		c.setState(AwaitingDestination)
		c.emitBoard()
		return
	}

	from := c.selected
	c.clearSelection()
	mv := corechess.Move{From: from, To: sq}
	if err := c.board.Apply(mv); err != nil {
		c.logger.Debug("move_rejected", zap.String("move", mv.String()), zap.Error(err))
		c.setState(c.idle())
		c.emitBoard()
		return
	}

	// The pending riddle describes the previous position.
	c.hintPending = false

	if t := c.board.Terminal(); t.Over() {
		c.finish(t)
		return
	}
	if c.engineDown {
		c.setState(AwaitingSelection)
		c.emitBoard()
		return
	}
	c.setState(AwaitingOpponentMove)
	c.emitBoard()
	c.requestEngineMove()
}

// SetDifficulty changes the strength of the next engine call and the style
// of the next riddle.
func (c *Controller) SetDifficulty(d corechess.Difficulty) error {
	if _, err := corechess.GetPreset(d); err != nil {
		return err
	}
	if c.state == GameOver {
		return ErrGameOver
	}
	c.difficulty = d
	if c.engine != nil {
		if err := c.engine.Configure(d); err != nil {
			c.logger.Warn("engine_configure_failed", zap.Error(err))
		}
	}
	c.logger.Info("difficulty_changed", zap.String("difficulty", string(d)))
	c.emitBoard()
	return nil
}

// NewGame abandons the current game from any state.
func (c *Controller) NewGame() {
	c.resetGame()
	c.listener.OnHint("")
	c.logger.Info("game_started",
		zap.String("game_id", c.gameID),
		zap.String("difficulty", string(c.difficulty)),
	)
	c.setState(AwaitingSelection)
	c.emitBoard()
}

func (c *Controller) resetGame() {
	c.epoch++
	c.board.Reset()
	c.clearSelection()
	c.hint = ""
	c.hintPending = false
	c.result = nil
	c.hintsShown = 0
	c.gameID = uuid.NewString()
	c.startedAt = c.now()
}

func (c *Controller) requestEngineMove() {
	preset, err := corechess.GetPreset(c.difficulty)
	if err != nil {
		c.engineFailed(err)
		return
	}
	epoch := c.epoch
	fen := c.board.FEN()
	level := preset.Name
	budget := preset.Budget()
	ctx := c.ctx
	engine := c.engine

	c.exec.Run(func() func() {
		mv, err := engine.BestMove(ctx, fen, level, budget)
		return func() { c.onEngineMove(epoch, mv, err) }
	})
}

func (c *Controller) onEngineMove(epoch uint64, mv corechess.Move, err error) {
	if epoch != c.epoch || c.state != AwaitingOpponentMove {
		c.logger.Debug("engine_reply_dropped", zap.Uint64("epoch", epoch))
		return
	}
	if err != nil {
		c.engineFailed(err)
		return
	}
	if err := c.board.Apply(mv); err != nil {
		c.engineFailed(fmt.Errorf("%w: engine replied %s: %v", corechess.ErrEngineUnavailable, mv, err))
		return
	}
	if t := c.board.Terminal(); t.Over() {
		c.finish(t)
		return
	}
	c.requestHint()
}

// engineFailed hands both sides to the human for the rest of the session.
func (c *Controller) engineFailed(err error) {
	if !c.engineDown {
		c.engineDown = true
		c.logger.Warn("engine_offline",
			zap.String("game_id", c.gameID),
			zap.Bool("unavailable", errors.Is(err, corechess.ErrEngineUnavailable)),
			zap.Error(err),
		)
	}
	c.setState(AwaitingSelection)
	c.emitBoard()
}

func (c *Controller) requestHint() {
	if c.hints == nil {
		c.setState(AwaitingSelection)
		c.emitBoard()
		return
	}
	c.hintSeq++
	c.hintPending = true
	seq, epoch, ply := c.hintSeq, c.epoch, c.board.Ply()
	fen := c.board.FEN()
	d := c.difficulty
	delay := c.hintDelay
	ctx := c.ctx
	hints := c.hints

	c.setState(GeneratingHint)
	c.emitBoard()

	c.exec.Run(func() func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}
		h, err := hints.Suggest(ctx, fen, d)
		return func() { c.onHint(epoch, seq, ply, h, err) }
	})
}

func (c *Controller) onHint(epoch, seq uint64, ply int, h hint.Hint, err error) {
	if epoch != c.epoch || seq != c.hintSeq || !c.hintPending || ply != c.board.Ply() {
		c.logger.Debug("hint_dropped", zap.Uint64("epoch", epoch), zap.Int("ply", ply))
		return
	}
	c.hintPending = false
	if err != nil {
		c.logger.Info("hint_unavailable",
			zap.Bool("expected", errors.Is(err, hint.ErrHintUnavailable)),
			zap.Error(err),
		)
	} else {
		c.hint = h.Text
		c.hintsShown++
		c.listener.OnHint(h.Text)
	}
	if c.state == GeneratingHint {
		c.setState(AwaitingSelection)
		c.emitBoard()
	}
}

func (c *Controller) finish(t corechess.Terminal) {
	res := c.resultFor(t)
	c.result = &res
	c.hintPending = false
	c.logger.Info("game_over",
		zap.String("game_id", c.gameID),
		zap.String("outcome", res.Outcome),
		zap.String("method", res.Method),
		zap.Int("plies", res.Plies),
	)
	c.setState(GameOver)
	c.emitBoard()
	c.listener.OnGameOver(res)
	c.persist(res)
}

func (c *Controller) resultFor(t corechess.Terminal) chessdto.GameResult {
	res := chessdto.GameResult{
		GameID: c.gameID,
		Method: t.Method,
		Plies:  c.board.Ply(),
	}
	var key string
	switch t.Kind {
	case corechess.Checkmate:
		res.Winner = corechess.ColorName(t.Winner)
		if t.Winner == nchess.White {
			res.Outcome, key = "1-0", "gameover.white_wins"
		} else {
			res.Outcome, key = "0-1", "gameover.black_wins"
		}
	case corechess.Stalemate:
		res.Outcome, key = "1/2-1/2", "gameover.stalemate"
	default:
		res.Outcome, key = "1/2-1/2", "gameover.draw"
	}
	res.Text = c.text(key, res)
	return res
}

var fallbackText = map[string]string{
	"gameover.white_wins": "White wins!",
	"gameover.black_wins": "Black wins!",
	"gameover.stalemate":  "Stalemate!",
	"gameover.draw":       "Draw",
}

func (c *Controller) text(key string, data any) string {
	if c.catalog != nil && c.catalog.Has(key) {
		out, err := c.catalog.Render(key, data)
		if err == nil {
			return out
		}
		c.logger.Warn("message_render_failed", zap.String("key", key), zap.Error(err))
	}
	return fallbackText[key]
}

func (c *Controller) persist(res chessdto.GameResult) {
	if c.recorder == nil {
		return
	}
	code, name := c.board.Opening()
	ended := c.now()
	record := &domain.GameRecord{
		GameID:       c.gameID,
		Difficulty:   string(c.difficulty),
		Result:       res.Outcome,
		ResultMethod: res.Method,
		MovesUCI:     c.board.MovesUCI(),
		MovesSAN:     c.board.MovesSAN(),
		PGN:          c.board.PGN(),
		FinalFEN:     c.board.FEN(),
		OpeningCode:  code,
		OpeningName:  name,
		HintsShown:   c.hintsShown,
		StartedAt:    c.startedAt,
		EndedAt:      ended,
		Duration:     ended.Sub(c.startedAt),
	}
	if named, ok := c.engine.(interface{ Name() string }); ok && !c.engineDown {
		record.EngineName = named.Name()
	}
	recorder := c.recorder
	logger := c.logger

	c.exec.Run(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		id, err := recorder.InsertGame(ctx, record)
		switch {
		case errors.Is(err, ErrDuplicateGame):
			logger.Debug("game_already_recorded", zap.String("game_id", record.GameID))
		case err != nil:
			logger.Warn("game_record_failed", zap.String("game_id", record.GameID), zap.Error(err))
		default:
			logger.Info("game_recorded", zap.String("game_id", record.GameID), zap.Int64("id", id))
		}
		return nil
	})
}

func (c *Controller) idle() State {
	if c.hintPending {
		return GeneratingHint
	}
	return AwaitingSelection
}

func (c *Controller) clearSelection() {
	c.hasSelection = false
	c.selected = nchess.NoSquare
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.listener.OnState(s)
}

func (c *Controller) emitBoard() {
	c.listener.OnBoard(c.view())
}
