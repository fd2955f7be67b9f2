package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/internal/chessbuilder"
	appcfg "github.com/park285/riddlechess/internal/config"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	pass = color.New(color.FgGreen, color.Bold).SprintFunc()
	fail = color.New(color.FgRed, color.Bold).SprintFunc()
	skip = color.New(color.FgYellow).SprintFunc()
)

func main() {
	withHint := flag.Bool("hint", false, "also request one riddle from the hint API")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		fmt.Printf("%s config: %v\n", fail("FAIL"), err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	deps, err := chessbuilder.New(ctx, cfg, zap.NewNop())
	if err != nil {
		fmt.Printf("%s init: %v\n", fail("FAIL"), err)
		os.Exit(1)
	}
	defer deps.Close()

	failed := false
	if !deps.Engine.Available() {
		fmt.Printf("%s engine: none of %v could be started\n", fail("FAIL"), corechess.EngineCandidates(cfg.Engine.StockfishPath))
		failed = true
	} else {
		fmt.Printf("%s engine: %s (%s)\n", pass("PASS"), deps.Engine.Name(), deps.Engine.Path())
		mv, err := deps.Engine.BestMove(ctx, startFEN, cfg.Difficulty(), 200*time.Millisecond)
		if err != nil {
			fmt.Printf("%s bestmove: %v\n", fail("FAIL"), err)
			failed = true
		} else {
			fmt.Printf("%s bestmove from the start position: %s\n", pass("PASS"), mv)
		}
	}

	if deps.Redis != nil {
		fmt.Printf("%s redis: riddle cache enabled\n", pass("PASS"))
	} else {
		fmt.Printf("%s redis: not configured or unreachable\n", skip("SKIP"))
	}

	switch {
	case !deps.Hints.Available():
		fmt.Printf("%s hints: ANTHROPIC_API_KEY not set\n", skip("SKIP"))
	case !*withHint:
		fmt.Printf("%s hints: API key present (run with -hint to call %s)\n", pass("PASS"), cfg.Hint.Model)
	default:
		h, err := deps.Hints.Suggest(ctx, startFEN, cfg.Difficulty())
		if err != nil {
			fmt.Printf("%s hint: %v\n", fail("FAIL"), err)
			failed = true
			break
		}
		fmt.Printf("%s hint for %s (cached=%v):\n%s\n", pass("PASS"), h.Move, h.Cached, h.Text)
	}

	if failed {
		deps.Close()
		os.Exit(1)
	}
}
