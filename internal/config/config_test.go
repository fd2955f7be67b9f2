package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	corechess "github.com/park285/riddlechess/internal/chess"
)

var configEnv = []string{
	"STOCKFISH_PATH", "ENGINE_THREADS", "ENGINE_HASH_MB", "ANTHROPIC_API_KEY",
	"HINT_API_URL", "HINT_MODEL", "HINT_MAX_TOKENS", "HINT_TEMPERATURE",
	"HINT_TIMEOUT", "HINT_DELAY", "HINT_CACHE_TTL", "REDIS_URL", "DATABASE_URL",
	"DEFAULT_DIFFICULTY", "MSGCAT_DIR", "SNAPSHOT_DIR", "PIECE_SVG_DIR", "HISTORY_LIMIT",
	"HINT_RETRIES", "HINT_API_VERSION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestZeroTemperatureIsKept(t *testing.T) {
	clearEnv(t)
	t.Setenv("HINT_TEMPERATURE", "0")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Hint.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", cfg.Hint.Temperature)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Hint.MaxTokens != 300 || cfg.Hint.Temperature != 0.9 || cfg.Hint.Delay != 200*time.Millisecond {
		t.Fatalf("unexpected hint defaults %+v", cfg.Hint)
	}
	if cfg.Hint.Retries != 3 || cfg.Hint.APIVersion != "2023-06-01" {
		t.Fatalf("unexpected client defaults %+v", cfg.Hint)
	}
	if cfg.Difficulty() != corechess.Easy || cfg.Hint.APIKey != "" || cfg.Path != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
engine:
  stockfish_path: /opt/sf
  threads: 2
hint:
  model: claude-test
  delay: 1s
  cache_ttl: 1h
default_difficulty: hard
history_limit: 25
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ENGINE_THREADS", "4")
	t.Setenv("HINT_TIMEOUT", "5")
	t.Setenv("HINT_TEMPERATURE", "0.5")
	t.Setenv("ANTHROPIC_API_KEY", " sk-abc ")
	t.Setenv("HINT_RETRIES", "1")
	t.Setenv("HINT_API_VERSION", "2024-01-01")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := EngineConfig{StockfishPath: "/opt/sf", Threads: 4, HashMB: 16}
	if diff := cmp.Diff(want, cfg.Engine); diff != "" {
		t.Fatalf("engine (-want +got):\n%s", diff)
	}
	if cfg.Hint.Model != "claude-test" || cfg.Hint.Delay != time.Second || cfg.Hint.CacheTTL != time.Hour {
		t.Fatalf("hint from file not applied: %+v", cfg.Hint)
	}
	if cfg.Hint.Timeout != 5*time.Second || cfg.Hint.Temperature != 0.5 || cfg.Hint.APIKey != "sk-abc" {
		t.Fatalf("hint env not applied: %+v", cfg.Hint)
	}
	if cfg.Hint.Retries != 1 || cfg.Hint.APIVersion != "2024-01-01" {
		t.Fatalf("client env not applied: %+v", cfg.Hint)
	}
	if cfg.Difficulty() != corechess.Hard || cfg.HistoryLimit != 25 || cfg.Path != path {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"ENGINE_THREADS":     "many",
		"HINT_TEMPERATURE":   "1.5",
		"HINT_TIMEOUT":       "soon",
		"DEFAULT_DIFFICULTY": "grandmaster",
		"HISTORY_LIMIT":      "0",
		"HINT_RETRIES":       "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := LoadFile(""); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
