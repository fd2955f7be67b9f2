package hint

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/internal/msgcat"
	"github.com/park285/riddlechess/internal/textgen"
	"go.uber.org/zap"
)

// ErrHintUnavailable covers every reason a riddle could not be produced.
var ErrHintUnavailable = errors.New("hint unavailable")

var errNoCredentials = errors.New("no text-generation credentials configured")

const (
	defaultMaxTokens       = 300
	defaultTemperature     = 0.9
	defaultTimeout         = 20 * time.Second
	defaultCandidateBudget = 150 * time.Millisecond
)

// Hint is a generated riddle and the move it alludes to.
type Hint struct {
	Text       string
	Move       string
	Difficulty corechess.Difficulty
	Cached     bool
}

// CandidateSource supplies engine lines to hint at.
type CandidateSource interface {
	Available() bool
	TopCandidates(ctx context.Context, fen string, n int, budget time.Duration) ([]corechess.Candidate, error)
}

// Config holds sampling and timing settings. Zero MaxTokens, Timeout and
// CandidateBudget fall back to defaults; Temperature is sent as given, and only
// a negative value means unset.
type Config struct {
	MaxTokens       int
	Temperature     float64
	Timeout         time.Duration
	CandidateBudget time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:       defaultMaxTokens,
		Temperature:     defaultTemperature,
		Timeout:         defaultTimeout,
		CandidateBudget: defaultCandidateBudget,
	}
}

type Generator struct {
	gen     textgen.Generator
	catalog *msgcat.Catalog
	engine  CandidateSource
	cache   Cache
	cfg     Config
	logger  *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

type Option func(*Generator)

func WithEngine(src CandidateSource) Option {
	return func(g *Generator) { g.engine = src }
}

func WithCache(c Cache) Option {
	return func(g *Generator) { g.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rand = rand.New(rand.NewSource(seed)) }
}

// New builds a generator. A nil gen disables it for the whole session.
func New(gen textgen.Generator, catalog *msgcat.Catalog, cfg Config, opts ...Option) *Generator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CandidateBudget <= 0 {
		cfg.CandidateBudget = defaultCandidateBudget
	}
	g := &Generator{
		gen:     gen,
		catalog: catalog,
		cfg:     cfg,
		logger:  zap.NewNop(),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Available reports whether Suggest can ever succeed.
func (g *Generator) Available() bool { return g.gen != nil && g.catalog != nil }

// Suggest picks a legal move in fen and asks the text service for a riddle
// about it. Every failure is reported as ErrHintUnavailable.
func (g *Generator) Suggest(ctx context.Context, fen string, d corechess.Difficulty) (Hint, error) {
	if !g.Available() {
		return Hint{}, unavailable(errNoCredentials)
	}
	preset, err := corechess.GetPreset(d)
	if err != nil {
		return Hint{}, unavailable(err)
	}
	board, err := corechess.NewBoardFromFEN(fen)
	if err != nil {
		return Hint{}, unavailable(err)
	}

	mv, err := g.pickMove(ctx, board, fen, preset)
	if err != nil {
		return Hint{}, unavailable(err)
	}
	features, err := board.Describe(mv)
	if err != nil {
		return Hint{}, unavailable(err)
	}

	key := CacheKey(fen, d, mv.String())
	if g.cache != nil {
		if text, ok, err := g.cache.Get(ctx, key); err != nil {
			g.logger.Warn("hint_cache_get_failed", zap.Error(err))
		} else if ok {
			return Hint{Text: text, Move: mv.String(), Difficulty: d, Cached: true}, nil
		}
	}

	prompt, err := g.catalog.Render("hint.prompt."+string(d), promptData(features))
	if err != nil {
		return Hint{}, unavailable(fmt.Errorf("render prompt: %w", err))
	}
	system, err := g.catalog.Render("hint.system", nil)
	if err != nil {
		return Hint{}, unavailable(fmt.Errorf("render system: %w", err))
	}

	genCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	start := time.Now()
	text, err := g.gen.Generate(genCtx, textgen.Request{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return Hint{}, unavailable(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Hint{}, unavailable(textgen.ErrEmptyResponse)
	}
	g.logger.Info("hint_generated",
		zap.String("move", mv.String()),
		zap.String("difficulty", string(d)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, text); err != nil {
			g.logger.Warn("hint_cache_set_failed", zap.Error(err))
		}
	}
	return Hint{Text: text, Move: mv.String(), Difficulty: d}, nil
}

// pickMove prefers the engine's top lines, weighted by difficulty, and falls
// back to a uniformly random legal move.
func (g *Generator) pickMove(ctx context.Context, board *corechess.Board, fen string, preset corechess.DifficultyPreset) (corechess.Move, error) {
	legal := board.LegalMoves()
	if len(legal) == 0 {
		return corechess.Move{}, errors.New("no legal moves")
	}

	var cands []corechess.Candidate
	if g.engine != nil && g.engine.Available() {
		var err error
		cands, err = g.engine.TopCandidates(ctx, fen, preset.MultiPV, g.cfg.CandidateBudget)
		if err != nil {
			g.logger.Debug("hint_candidates_failed", zap.Error(err))
		}
	}

	g.randMu.Lock()
	defer g.randMu.Unlock()
	if len(cands) > 0 {
		if choice, err := corechess.SelectCandidate(preset, cands, g.rand); err == nil {
			if mv, err := corechess.ParseMove(choice.Move); err == nil {
				if resolved, ok := board.Resolve(mv); ok {
					return resolved, nil
				}
			}
		}
	}
	return legal[g.rand.Intn(len(legal))], nil
}

func promptData(f corechess.MoveFeatures) map[string]any {
	placements := make([]string, 0, len(f.Placements))
	for _, p := range f.Placements {
		placements = append(placements, fmt.Sprintf("%s %s on %s", p.Color, p.Piece, p.Square))
	}
	return map[string]any{
		"Piece":      f.Piece,
		"From":       f.From,
		"To":         f.To,
		"Capture":    f.Capture,
		"Check":      f.Check,
		"Pinned":     f.Pinned,
		"Attacked":   f.AttackedSquares,
		"Defended":   f.DefendedSquares,
		"Phase":      f.Phase(),
		"Placements": placements,
		"Opening":    f.OpeningName,
	}
}

// unavailable hides the cause behind ErrHintUnavailable; only its text survives.
func unavailable(cause error) error {
	return fmt.Errorf("%w: %v", ErrHintUnavailable, cause)
}
