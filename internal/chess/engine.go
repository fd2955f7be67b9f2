package chess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/park285/riddlechess/internal/chess/uci"
	"go.uber.org/zap"
)

// ErrEngineUnavailable covers every engine failure: no binary, a dead or
// unresponsive process, or an unusable reply.
var ErrEngineUnavailable = errors.New("engine unavailable")

var errEngineClosed = errors.New("engine closed")

const (
	hintSkillLevel    = 20
	defaultHandshakeLimit = 4 * time.Second
)

type EngineConfig struct {
	Candidates       []string
	Threads          int
	HashMB           int
	HandshakeTimeout time.Duration
	SearchGrace      time.Duration
	Stderr           io.Writer
	Logger           *zap.Logger
}

// Engine owns the single engine process of a session. Once disabled it stays
// disabled and every call returns ErrEngineUnavailable.
type Engine struct {
	logger *zap.Logger

	mu         sync.Mutex
	session    *uci.Session
	path       string
	name       string
	difficulty Difficulty
	disabled   error

	closeOnce sync.Once
}

// NewEngine tries cfg.Candidates in order and keeps the first one that
// completes the UCI handshake. It never fails; without a working candidate
// the engine starts disabled.
func NewEngine(ctx context.Context, cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger, difficulty: Easy}

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeLimit
	}
	for _, candidate := range cfg.Candidates {
		path, ok := resolveCandidate(candidate)
		if !ok {
			logger.Debug("engine_candidate_missing", zap.String("candidate", candidate))
			continue
		}
		session, err := uci.NewSession(ctx, path, uci.Options{
			Threads:          cfg.Threads,
			HashMB:           cfg.HashMB,
			HandshakeTimeout: timeout,
			SearchGrace:      cfg.SearchGrace,
			Stderr:           cfg.Stderr,
			Logger:           logger,
		})
		if err != nil {
			logger.Warn("engine_start_failed", zap.String("path", path), zap.Error(err))
			continue
		}
		e.session = session
		e.path = path
		e.name = session.Name()
		logger.Info("engine_ready", zap.String("path", path), zap.String("name", e.name))
		return e
	}

	e.disabled = fmt.Errorf("no engine among %v completed the handshake", cfg.Candidates)
	logger.Warn("engine_unavailable", zap.Strings("candidates", cfg.Candidates))
	return e
}

// Available reports whether searches can still be issued.
func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disabled == nil && e.session != nil
}

// Path is the resolved binary path, empty when disabled at startup.
func (e *Engine) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

func (e *Engine) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// Configure sets the strength BestMove uses when the caller names none. A
// search already in flight keeps the settings it started with.
func (e *Engine) Configure(d Difficulty) error {
	if _, err := GetPreset(d); err != nil {
		return err
	}
	e.mu.Lock()
	e.difficulty = d
	e.mu.Unlock()
	return nil
}

func (e *Engine) Difficulty() Difficulty {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.difficulty
}

// acquire returns the session and the preset for d, or for the configured
// difficulty when d is empty.
func (e *Engine) acquire(d Difficulty) (*uci.Session, DifficultyPreset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disabled != nil {
		return nil, DifficultyPreset{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, e.disabled)
	}
	if d == "" {
		d = e.difficulty
	}
	preset, err := GetPreset(d)
	if err != nil {
		return nil, DifficultyPreset{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return e.session, preset, nil
}

// BestMove searches fen at difficulty d (the configured one when d is empty)
// for up to budget (d's budget when zero) and returns a move legal in fen.
// Both are fixed when the call is made.
func (e *Engine) BestMove(ctx context.Context, fen string, d Difficulty, budget time.Duration) (Move, error) {
	session, preset, err := e.acquire(d)
	if err != nil {
		return Move{}, err
	}
	if budget <= 0 {
		budget = preset.Budget()
	}

	start := time.Now()
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:     fen,
		Limits:  uci.Limits{MoveTimeMillis: int(budget.Milliseconds())},
		Options: uci.SearchOptions{SkillLevel: preset.SkillLevel, MultiPV: 1},
	})
	if err != nil {
		return Move{}, e.fail(err)
	}

	mv, err := legalReply(fen, resp.BestMove)
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	e.logger.Debug("engine_move",
		zap.String("move", mv.String()),
		zap.String("difficulty", string(preset.Name)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("stopped", resp.Stopped),
	)
	return mv, nil
}

// TopCandidates runs a full-strength MultiPV search and returns up to n lines,
// best first.
func (e *Engine) TopCandidates(ctx context.Context, fen string, n int, budget time.Duration) ([]Candidate, error) {
	session, _, err := e.acquire("")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:     fen,
		Limits:  uci.Limits{MoveTimeMillis: int(budget.Milliseconds())},
		Options: uci.SearchOptions{SkillLevel: hintSkillLevel, MultiPV: n},
	})
	if err != nil {
		return nil, e.fail(err)
	}

	out := convertCandidates(resp.Candidates)
	if len(out) == 0 && resp.BestMove != "" {
		out = []Candidate{{Move: resp.BestMove, Principal: []string{resp.BestMove}}}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func legalReply(fen, reply string) (Move, error) {
	mv, err := ParseMove(reply)
	if err != nil {
		return Move{}, err
	}
	board, err := NewBoardFromFEN(fen)
	if err != nil {
		return Move{}, err
	}
	legal, ok := board.Resolve(mv)
	if !ok {
		return Move{}, fmt.Errorf("engine replied with illegal move %s", reply)
	}
	return legal, nil
}

// fail disables the engine unless the search was refused before it started
// or the position simply has no move.
func (e *Engine) fail(err error) error {
	if !errors.Is(err, uci.ErrNoMove) && !errors.Is(err, uci.ErrBadLimits) {
		e.disable(err)
	}
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}

// disable kills the process and marks the engine unusable for the session.
func (e *Engine) disable(cause error) {
	e.mu.Lock()
	session := e.session
	e.session = nil
	first := e.disabled == nil
	if first {
		e.disabled = cause
	}
	e.mu.Unlock()

	if first {
		e.logger.Warn("engine_disabled", zap.String("path", e.Path()), zap.Error(cause))
	}
	if session != nil {
		if err := session.Close(); err != nil {
			e.logger.Warn("engine_close_failed", zap.Error(err))
		}
	}
}

// Close terminates the engine process once. Later calls are no-ops.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		session := e.session
		e.session = nil
		if e.disabled == nil {
			e.disabled = errEngineClosed
		}
		e.mu.Unlock()
		if session != nil {
			err = session.Close()
		}
	})
	return err
}

func convertCandidates(in []uci.Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		out = append(out, Candidate{
			Move:      c.Move,
			EvalCP:    c.EvalCP,
			Principal: append([]string(nil), c.Principal...),
		})
	}
	return out
}
