package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"

	corechess "github.com/park285/riddlechess/internal/chess"
)

const cfgFile = "riddlechess/config.yaml"

type EngineConfig struct {
	StockfishPath string `yaml:"stockfish_path"`
	Threads       int    `yaml:"threads"`
	HashMB        int    `yaml:"hash_mb"`
}

type HintConfig struct {
	APIKey      string        `yaml:"-"`
	APIURL      string        `yaml:"api_url"`
	APIVersion  string        `yaml:"api_version"`
	Model       string        `yaml:"model"`
	Retries     int           `yaml:"retries"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Delay       time.Duration `yaml:"delay"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type AppConfig struct {
	Engine EngineConfig `yaml:"engine"`
	Hint   HintConfig   `yaml:"hint"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	DefaultDifficulty string `yaml:"default_difficulty"`
	MsgcatDir         string `yaml:"msgcat_dir"`
	SnapshotDir       string `yaml:"snapshot_dir"`
	PieceSVGDir       string `yaml:"piece_svg_dir"`
	HistoryLimit      int    `yaml:"history_limit"`

	// Path is the config file that was read, empty when none was found.
	Path string `yaml:"-"`
}

func Default() *AppConfig {
	return &AppConfig{
		Engine: EngineConfig{Threads: 1, HashMB: 16},
		Hint: HintConfig{
			APIURL:      "https://api.anthropic.com",
			APIVersion:  "2023-06-01",
			Model:       "claude-3-opus-20240229",
			Retries:     3,
			MaxTokens:   300,
			Temperature: 0.9,
			Timeout:     20 * time.Second,
			Delay:       200 * time.Millisecond,
			CacheTTL:    7 * 24 * time.Hour,
		},
		DefaultDifficulty: string(corechess.Easy),
		SnapshotDir:       filepath.Join(xdg.DataHome, "riddlechess", "snapshots"),
		HistoryLimit:      10,
	}
}

// Load reads $XDG_CONFIG_HOME/riddlechess/config.yaml when present and then
// applies environment overrides.
func Load() (*AppConfig, error) {
	path := ""
	if p, err := xdg.SearchConfigFile(cfgFile); err == nil {
		path = p
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file; an empty path skips the file.
func LoadFile(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.Engine.StockfishPath, "STOCKFISH_PATH")
	setString(&c.Hint.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Hint.APIURL, "HINT_API_URL")
	setString(&c.Hint.APIVersion, "HINT_API_VERSION")
	setString(&c.Hint.Model, "HINT_MODEL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DefaultDifficulty, "DEFAULT_DIFFICULTY")
	setString(&c.MsgcatDir, "MSGCAT_DIR")
	setString(&c.SnapshotDir, "SNAPSHOT_DIR")
	setString(&c.PieceSVGDir, "PIECE_SVG_DIR")

	var errs []error
	errs = append(errs,
		setInt(&c.Engine.Threads, "ENGINE_THREADS"),
		setInt(&c.Engine.HashMB, "ENGINE_HASH_MB"),
		setInt(&c.Hint.MaxTokens, "HINT_MAX_TOKENS"),
		setInt(&c.Hint.Retries, "HINT_RETRIES"),
		setInt(&c.HistoryLimit, "HISTORY_LIMIT"),
		setDuration(&c.Hint.Timeout, "HINT_TIMEOUT"),
		setDuration(&c.Hint.Delay, "HINT_DELAY"),
		setDuration(&c.Hint.CacheTTL, "HINT_CACHE_TTL"),
	)
	if v := strings.TrimSpace(os.Getenv("HINT_TEMPERATURE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("HINT_TEMPERATURE: %w", err))
		} else {
			c.Hint.Temperature = f
		}
	}
	return errors.Join(errs...)
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	if _, err := corechess.ParseDifficulty(c.DefaultDifficulty); err != nil {
		return fmt.Errorf("default_difficulty: %w", err)
	}
	if c.Engine.Threads < 0 || c.Engine.HashMB < 0 {
		return errors.New("engine threads and hash_mb must not be negative")
	}
	if c.Hint.MaxTokens <= 0 {
		return fmt.Errorf("hint max_tokens must be positive, got %d", c.Hint.MaxTokens)
	}
	if c.Hint.Temperature < 0 || c.Hint.Temperature > 1 {
		return fmt.Errorf("hint temperature must be within [0,1], got %g", c.Hint.Temperature)
	}
	if c.Hint.Retries < 1 {
		return fmt.Errorf("hint retries must be at least 1, got %d", c.Hint.Retries)
	}
	if c.Hint.Timeout <= 0 {
		return errors.New("hint timeout must be positive")
	}
	if c.Hint.Delay < 0 || c.Hint.CacheTTL < 0 {
		return errors.New("hint delay and cache_ttl must not be negative")
	}
	if strings.TrimSpace(c.Hint.Model) == "" || strings.TrimSpace(c.Hint.APIURL) == "" {
		return errors.New("hint model and api_url are required")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

// Difficulty is DefaultDifficulty parsed; Validate guarantees it succeeds.
func (c *AppConfig) Difficulty() corechess.Difficulty {
	d, err := corechess.ParseDifficulty(c.DefaultDifficulty)
	if err != nil {
		return corechess.Easy
	}
	return d
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// setDuration accepts Go durations ("300ms") or plain seconds.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
