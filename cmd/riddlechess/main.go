package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/park285/riddlechess/internal/adapter/chesspresenter"
	"github.com/park285/riddlechess/internal/adapter/tui"
	"github.com/park285/riddlechess/internal/chessbuilder"
	appcfg "github.com/park285/riddlechess/internal/config"
	"github.com/park285/riddlechess/internal/msgcat"
	"github.com/park285/riddlechess/internal/obslog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("riddlechess: %v", err))
		os.Exit(1)
	}
}

func run() error {
	difficulty := flag.String("difficulty", "", "starting difficulty: easy, medium or hard")
	history := flag.Int("history", 0, "print the last N recorded games and exit")
	snapshotDir := flag.String("snapshot-dir", "", "directory for PNG snapshots")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if *difficulty != "" {
		cfg.DefaultDifficulty = *difficulty
	}
	if *snapshotDir != "" {
		cfg.SnapshotDir = *snapshotDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = obslog.Sync() }()
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *history > 0 {
		return printHistory(ctx, cfg, logger, *history)
	}

	deps, err := chessbuilder.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("shutdown_error", zap.Error(err))
		}
	}()

	logger.Info("riddlechess_start",
		zap.String("config", cfg.Path),
		zap.String("difficulty", cfg.DefaultDifficulty),
		zap.Bool("engine", deps.Engine.Available()),
		zap.Bool("hints", deps.Hints.Available()),
	)

	ui := tui.New(chesspresenter.NewFormatter(deps.Catalog), deps.Renderer, deps.NewController, tui.Options{
		SnapshotDir:  cfg.SnapshotDir,
		History:      deps.Repo,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger.Named("tui"),
	})
	if err := ui.Run(ctx); err != nil {
		logger.Error("ui_error", zap.Error(err))
		return fmt.Errorf("terminal: %w", err)
	}
	logger.Info("riddlechess_stop")
	return nil
}

func printHistory(ctx context.Context, cfg *appcfg.AppConfig, logger *zap.Logger, limit int) error {
	catalog, err := msgcat.New(cfg.MsgcatDir)
	if err != nil {
		return err
	}
	repo, db, err := chessbuilder.OpenRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	games, err := repo.GetRecentGames(qctx, limit)
	if err != nil {
		return err
	}
	formatter := chesspresenter.NewFormatter(catalog)
	summaries := chesspresenter.ToGameSummaries(games)
	if len(summaries) == 0 {
		fmt.Println(formatter.History(summaries))
		return nil
	}
	_, _ = color.New(color.Bold).Println(formatter.HistoryHeader(len(summaries)))
	for _, g := range summaries {
		_, _ = resultColor(g.Result).Println(formatter.HistoryRow(g))
	}
	return nil
}

func resultColor(result string) *color.Color {
	switch result {
	case "1-0":
		return color.New(color.FgGreen)
	case "0-1":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
