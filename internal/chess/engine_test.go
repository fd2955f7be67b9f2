package chess

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newFakeEngine(t *testing.T, mode string, grace time.Duration) *Engine {
	t.Helper()
	path := fakeEnginePath(t, mode)
	e := NewEngine(context.Background(), EngineConfig{
		Candidates:       []string{"/nonexistent/stockfish", path},
		HandshakeTimeout: 2 * time.Second,
		SearchGrace:      grace,
	})
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngineWithoutCandidatesIsDisabled(t *testing.T) {
	e := NewEngine(context.Background(), EngineConfig{Candidates: []string{"/nonexistent/stockfish", "no-such-engine-binary"}})
	defer e.Close()

	if e.Available() {
		t.Fatalf("expected engine to be unavailable")
	}
	for i := 0; i < 3; i++ {
		_, err := e.BestMove(context.Background(), NewBoard().FEN(), "", 50*time.Millisecond)
		if !errors.Is(err, ErrEngineUnavailable) {
			t.Fatalf("call %d: expected ErrEngineUnavailable, got %v", i, err)
		}
	}
}

func TestEngineSkipsMissingCandidate(t *testing.T) {
	e := newFakeEngine(t, "ok", time.Second)
	if !e.Available() {
		t.Fatalf("expected engine to be available")
	}
	if e.Name() != "FakeFish" {
		t.Fatalf("unexpected engine name %q", e.Name())
	}
}

func TestEngineBestMoveIsLegal(t *testing.T) {
	e := newFakeEngine(t, "ok", time.Second)

	board := NewBoard()
	if err := board.Apply(mustMove(t, "e2e4")); err != nil {
		t.Fatalf("apply e2e4: %v", err)
	}
	mv, err := e.BestMove(context.Background(), board.FEN(), "", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if err := board.Apply(mv); err != nil {
		t.Fatalf("engine move %s not legal: %v", mv, err)
	}
	if got := ColorName(board.Turn()); got != "white" {
		t.Fatalf("expected white to move, got %s", got)
	}
}

func TestEngineStopRecoversSlowSearch(t *testing.T) {
	e := newFakeEngine(t, "slow", 50*time.Millisecond)

	mv, err := e.BestMove(context.Background(), NewBoard().FEN(), "", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if _, ok := NewBoard().Resolve(mv); !ok {
		t.Fatalf("move %s is not legal from the start position", mv)
	}
	if !e.Available() {
		t.Fatalf("engine that answers stop must stay available")
	}
}

func TestEngineUnresponsiveIsDisabled(t *testing.T) {
	e := newFakeEngine(t, "hang", 50*time.Millisecond)

	start := time.Now()
	_, err := e.BestMove(context.Background(), NewBoard().FEN(), "", 20*time.Millisecond)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("search was not bounded: %s", elapsed)
	}
	if e.Available() {
		t.Fatalf("expected engine to be disabled after timeout")
	}
	if _, err := e.BestMove(context.Background(), NewBoard().FEN(), "", 20*time.Millisecond); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected disabled engine to keep failing, got %v", err)
	}
}

func TestEngineMuteHandshakeIsRejected(t *testing.T) {
	path := fakeEnginePath(t, "mute")
	e := NewEngine(context.Background(), EngineConfig{
		Candidates:       []string{path},
		HandshakeTimeout: 100 * time.Millisecond,
	})
	defer e.Close()
	if e.Available() {
		t.Fatalf("engine without uciok must not be used")
	}
}

func TestEngineTopCandidates(t *testing.T) {
	e := newFakeEngine(t, "ok", time.Second)

	cands, err := e.TopCandidates(context.Background(), NewBoard().FEN(), 3, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("TopCandidates: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	seen := map[string]bool{}
	for _, c := range cands {
		if seen[c.Move] {
			t.Fatalf("duplicate candidate %s", c.Move)
		}
		seen[c.Move] = true
	}
	if cands[0].EvalCP < cands[1].EvalCP {
		t.Fatalf("candidates not ordered best first: %+v", cands)
	}
}

func TestEngineConfigureRejectsUnknownDifficulty(t *testing.T) {
	e := NewEngine(context.Background(), EngineConfig{})
	defer e.Close()
	if err := e.Configure(Difficulty("insane")); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
	if err := e.Configure(Hard); err != nil {
		t.Fatalf("Configure(hard): %v", err)
	}
	if e.Difficulty() != Hard {
		t.Fatalf("expected hard, got %s", e.Difficulty())
	}
}

func TestEngineCloseIsIdempotent(t *testing.T) {
	e := newFakeEngine(t, "ok", time.Second)
	if err := e.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if e.Available() {
		t.Fatalf("closed engine must not be available")
	}
	if _, err := e.BestMove(context.Background(), NewBoard().FEN(), "", 0); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable after Close, got %v", err)
	}
}

func TestEngineRejectsSubMillisecondBudgetWithoutDisabling(t *testing.T) {
	e := newFakeEngine(t, "ok", time.Second)

	if _, err := e.BestMove(context.Background(), NewBoard().FEN(), "", 500*time.Microsecond); err == nil {
		t.Fatalf("expected an error for a sub-millisecond budget")
	}
	if _, err := e.TopCandidates(context.Background(), NewBoard().FEN(), 3, 0); err == nil {
		t.Fatalf("expected an error for a zero hint budget")
	}
	if !e.Available() {
		t.Fatalf("refused searches must not disable the engine")
	}
	if _, err := e.BestMove(context.Background(), NewBoard().FEN(), "", 20*time.Millisecond); err != nil {
		t.Fatalf("BestMove after refused search: %v", err)
	}
}

func TestEngineBestMoveUsesRequestedDifficulty(t *testing.T) {
	e := newFakeEngine(t, "ok", time.Second)

	if _, err := e.BestMove(context.Background(), NewBoard().FEN(), Hard, 20*time.Millisecond); err != nil {
		t.Fatalf("BestMove(hard): %v", err)
	}
	if e.Difficulty() != Easy {
		t.Fatalf("a per-call difficulty must not change the configured one, got %s", e.Difficulty())
	}
	if _, err := e.BestMove(context.Background(), NewBoard().FEN(), Difficulty("grandmaster"), 20*time.Millisecond); err == nil {
		t.Fatalf("expected an error for an unknown difficulty")
	}
}
