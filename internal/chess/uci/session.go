package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 4 * time.Second
	defaultSearchGrace      = time.Second
	stopGrace               = 500 * time.Millisecond
	quitGrace               = 500 * time.Millisecond
	lineBuffer              = 256
)

var (
	// ErrUnresponsive means the engine ignored both the deadline and "stop".
	ErrUnresponsive = errors.New("uci: engine unresponsive")
	// ErrNoMove means the engine answered "bestmove (none)".
	ErrNoMove = errors.New("uci: engine returned no move")
	// ErrBadLimits means the request was rejected before reaching the engine.
	ErrBadLimits = errors.New("uci: invalid search limits")
	// ErrClosed means the process output ended.
	ErrClosed = errors.New("uci: engine closed")
)

// Options are process-wide settings sent once after the handshake.
type Options struct {
	Threads          int
	HashMB           int
	HandshakeTimeout time.Duration
	SearchGrace      time.Duration
	Stderr           io.Writer
	Logger           *zap.Logger
}

// SearchOptions are re-sent only when they differ from the last search.
type SearchOptions struct {
	SkillLevel int
	MultiPV    int
}

// Limits bounds one search. Only a fixed move time is supported.
type Limits struct {
	MoveTimeMillis int
}

type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

// Session is one running UCI process. Searches are serialised.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	name   string
	grace  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	search  sync.Mutex
	applied SearchOptions

	closeOnce sync.Once
	closeErr  error
}

// NewSession starts binaryPath and completes the uci/isready handshake
// within ctx. The process itself outlives ctx.
func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = opt.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	grace := opt.SearchGrace
	if grace <= 0 {
		grace = defaultSearchGrace
	}
	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, lineBuffer),
		done:   make(chan struct{}),
		grace:  grace,
		logger: logger,
	}
	go s.pump(stdoutPipe)

	timeout := opt.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.initialize(initCtx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Name is the engine's "id name" line, if it sent one.
func (s *Session) Name() string { return s.name }

type SearchRequest struct {
	FEN     string
	Limits  Limits
	Options SearchOptions
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
	Stopped    bool
}

// Search runs one bounded search. The wait is capped at the move time plus
// the session grace; past that the engine is sent "stop" and given a short
// window to answer before ErrUnresponsive is returned.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	goTokens, err := buildGoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}

	s.drainPending()

	if err := s.applySearchOptions(ctx, req.Options); err != nil {
		return SearchResponse{}, err
	}

	positionCmd := buildPositionCommand(req.FEN)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}

	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.searchTimeout(req.Limits))
	defer cancel()

	candidates := make(map[int]Candidate)
	resp, err := s.collect(searchCtx, candidates)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, ErrClosed) || errors.Is(err, ErrNoMove) {
		return SearchResponse{}, err
	}

	s.logger.Warn("uci_search_deadline",
		zap.String("position", strings.TrimSpace(positionCmd)),
		zap.String("go", goCmd),
		zap.Error(err),
	)
	if sendErr := s.send("stop\n"); sendErr != nil {
		return SearchResponse{}, fmt.Errorf("%w: send stop: %v", ErrUnresponsive, sendErr)
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopGrace)
	defer stopCancel()
	resp, stopErr := s.collect(stopCtx, candidates)
	if stopErr != nil {
		if errors.Is(stopErr, ErrNoMove) {
			return SearchResponse{}, stopErr
		}
		return SearchResponse{}, fmt.Errorf("%w: %v", ErrUnresponsive, stopErr)
	}
	resp.Stopped = true
	return resp, nil
}

func (s *Session) collect(ctx context.Context, candidates map[int]Candidate) (SearchResponse, error) {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return SearchResponse{}, err
		}
		switch {
		case strings.HasPrefix(line, "info "):
			if mv, cand, ok := parseInfo(line); ok {
				candidates[mv] = cand
			}
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			if len(parts) < 2 || parts[1] == "(none)" || parts[1] == "0000" {
				return SearchResponse{}, ErrNoMove
			}
			return SearchResponse{Candidates: collapseCandidates(candidates), BestMove: parts[1]}, nil
		}
	}
}

func (s *Session) searchTimeout(l Limits) time.Duration {
	return time.Duration(l.MoveTimeMillis)*time.Millisecond + s.grace
}

func buildPositionCommand(fen string) string {
	if fen = strings.TrimSpace(fen); fen == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func validateOptions(opt Options) error {
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	return nil
}

func validateSearchOptions(opt SearchOptions) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.MultiPV < 0 {
		return fmt.Errorf("multipv must be >= 0: %d", opt.MultiPV)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	if l.MoveTimeMillis <= 0 {
		return nil, fmt.Errorf("%w: movetime must be positive: %d", ErrBadLimits, l.MoveTimeMillis)
	}
	return []string{"go", "movetime", strconv.Itoa(l.MoveTimeMillis)}, nil
}

func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return 0, Candidate{}, false
	}
	var (
		multipv = 1
		evalCP  int
		pvIdx   = -1
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				kind, val := parts[i+1], parts[i+2]
				if v, err := strconv.Atoi(val); err == nil {
					switch kind {
					case "cp":
						evalCP = v
					case "mate":
						const mateValue = 30000
						if v >= 0 {
							evalCP = mateValue
						} else {
							evalCP = -mateValue
						}
					}
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if pvIdx == -1 || pvIdx >= len(parts) {
		return 0, Candidate{}, false
	}
	principal := parts[pvIdx:]
	return multipv, Candidate{
		Move:      principal[0],
		EvalCP:    evalCP,
		Principal: append([]string(nil), principal...),
	}, true
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

// Close sends "quit", then kills the process if it has not exited within a
// short grace period. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.send("quit\n")
		s.mu.Lock()
		if s.stdin != nil {
			s.stdin.Close()
		}
		s.mu.Unlock()

		waitCh := make(chan error, 1)
		go func() { waitCh <- s.cmd.Wait() }()

		var err error
		select {
		case err = <-waitCh:
		case <-time.After(quitGrace):
			_ = s.cmd.Process.Kill()
			err = <-waitCh
		}
		close(s.done)

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return fmt.Errorf("wait uciok: %w", err)
		}
		if strings.HasPrefix(line, "id name ") {
			s.name = strings.TrimSpace(strings.TrimPrefix(line, "id name "))
		}
		if line == "uciok" {
			break
		}
	}

	var cmds []string
	if opt.Threads > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Threads value %d\n", opt.Threads))
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return s.ensureReady(ctx)
}

func (s *Session) applySearchOptions(ctx context.Context, opt SearchOptions) error {
	if err := validateSearchOptions(opt); err != nil {
		return err
	}
	if opt.MultiPV == 0 {
		opt.MultiPV = 1
	}
	if opt == s.applied {
		return nil
	}
	cmds := []string{
		fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel),
		fmt.Sprintf("setoption name MultiPV value %d\n", opt.MultiPV),
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply search options: %w", err)
		}
	}
	readyCtx, cancel := context.WithTimeout(ctx, defaultHandshakeTimeout)
	defer cancel()
	if err := s.ensureReady(readyCtx); err != nil {
		return err
	}
	s.applied = opt
	return nil
}

func (s *Session) ensureReady(ctx context.Context) error {
	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return fmt.Errorf("wait readyok: %w", err)
		}
		if line == "readyok" {
			return nil
		}
	}
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

// pump is the only reader of the engine's stdout.
func (s *Session) pump(r io.Reader) {
	defer close(s.lines)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			select {
			case s.lines <- trimmed:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) drainPending() {
	for {
		select {
		case _, ok := <-s.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", ErrClosed
		}
		return line, nil
	}
}
