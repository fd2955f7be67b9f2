package chessbuilder

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/park285/riddlechess/internal/config"
	"github.com/park285/riddlechess/internal/hint"
	"github.com/park285/riddlechess/internal/msgcat"
	"github.com/park285/riddlechess/internal/render"
	"github.com/park285/riddlechess/internal/service/game"
	"github.com/park285/riddlechess/internal/textgen"
)

const pingTimeout = 5 * time.Second

// Deps is everything a front end needs. Close releases all of it.
type Deps struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Catalog  *msgcat.Catalog
	Engine   *corechess.Engine
	Hints    *hint.Generator
	Repo     game.Repository
	Renderer *render.Renderer
	Redis    *redis.Client

	db *sql.DB
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{Config: cfg, Logger: logger}

	catalog, err := msgcat.New(cfg.MsgcatDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps.Catalog = catalog

	repo, db, err := OpenRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Repo, deps.db = repo, db

	// Redis is optional; without it riddles are simply not cached.
	var cache hint.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, perr := parseRedisURL(cfg.RedisURL)
		if perr != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("parse redis url: %w", perr)
		}
		rdb := redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		perr = rdb.Ping(pctx).Err()
		cancel()
		if perr != nil {
			logger.Warn("redis_unavailable", zap.String("addr", opts.Addr), zap.Error(perr))
			_ = rdb.Close()
		} else {
			deps.Redis = rdb
			cache = hint.NewRedisCache(rdb, cfg.Hint.CacheTTL)
		}
	}

	deps.Engine = corechess.NewEngine(ctx, corechess.EngineConfig{
		Candidates: corechess.EngineCandidates(cfg.Engine.StockfishPath),
		Threads:    cfg.Engine.Threads,
		HashMB:     cfg.Engine.HashMB,
		Logger:     logger.Named("engine"),
	})
	if err := deps.Engine.Configure(cfg.Difficulty()); err != nil {
		logger.Warn("engine_configure_failed", zap.Error(err))
	}

	var gen textgen.Generator
	if key := strings.TrimSpace(cfg.Hint.APIKey); key != "" {
		gen = textgen.NewClient(cfg.Hint.APIURL, key, cfg.Hint.Model,
			textgen.WithTimeout(cfg.Hint.Timeout),
			textgen.WithRetry(cfg.Hint.Retries),
			textgen.WithAPIVersion(cfg.Hint.APIVersion),
		)
	} else {
		logger.Info("hints_disabled", zap.String("reason", "ANTHROPIC_API_KEY not set"))
	}
	hintOpts := []hint.Option{hint.WithEngine(deps.Engine), hint.WithLogger(logger.Named("hint"))}
	if cache != nil {
		hintOpts = append(hintOpts, hint.WithCache(cache))
	}
	deps.Hints = hint.New(gen, catalog, hint.Config{
		MaxTokens:   cfg.Hint.MaxTokens,
		Temperature: cfg.Hint.Temperature,
		Timeout:     cfg.Hint.Timeout,
	}, hintOpts...)

	deps.Renderer = render.NewRenderer(cfg.PieceSVGDir)
	return deps, nil
}

// OpenRepository connects to postgres when DATABASE_URL is set and falls back
// to process memory otherwise. The returned *sql.DB is nil in the latter case.
func OpenRepository(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (game.Repository, *sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("game_store", zap.String("kind", "memory"))
		return game.NewMemoryRepository(), nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := game.EnsureSchema(pctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("game_store", zap.String("kind", "postgres"))
	return game.NewRepository(db), db, nil
}

// NewController wires a controller to the shared collaborators.
func (d *Deps) NewController(listener game.Listener, exec game.Executor) *game.Controller {
	return game.New(d.Engine, d.Hints, listener,
		game.WithExecutor(exec),
		game.WithLogger(d.Logger.Named("game")),
		game.WithRecorder(d.Repo),
		game.WithCatalog(d.Catalog),
		game.WithDifficulty(d.Config.Difficulty()),
		game.WithHintDelay(d.Config.Hint.Delay),
	)
}

// Close shuts the engine down and closes every connection. Safe to call twice.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
		d.Redis = nil
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
		d.db = nil
	}
	return errors.Join(errs...)
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	if _, err := strconv.Atoi(portStr); err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{
		Addr:     net.JoinHostPort(host, portStr),
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
