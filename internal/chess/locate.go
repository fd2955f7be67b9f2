package chess

import (
	"os"
	"os/exec"
	"strings"
)

// DefaultEngineCandidates are tried in order when no explicit path is set.
// A bare name is resolved through $PATH.
var DefaultEngineCandidates = []string{
	"/opt/homebrew/bin/stockfish",
	"/usr/local/bin/stockfish",
	"stockfish",
}

// EngineCandidates prepends the configured path to the defaults, dropping
// blanks and duplicates.
func EngineCandidates(configured string, extra ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	add(configured)
	for _, p := range extra {
		add(p)
	}
	for _, p := range DefaultEngineCandidates {
		add(p)
	}
	return out
}

// resolveCandidate returns an executable path for c, or false.
func resolveCandidate(c string) (string, bool) {
	if !strings.ContainsRune(c, os.PathSeparator) {
		p, err := exec.LookPath(c)
		if err != nil {
			return "", false
		}
		return p, true
	}
	info, err := os.Stat(c)
	if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
		return "", false
	}
	return c, true
}
