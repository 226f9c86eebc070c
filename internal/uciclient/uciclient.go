// Package uciclient launches a UCI chess engine as a subprocess and drives
// it over stdin/stdout, mirroring the request/response shape
// internal/uci's server implements from the other end (id/option/uciok,
// position/go/bestmove).
package uciclient

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/centaurcore/gamecore/internal/board"
)

// Engine is a running UCI engine subprocess.
type Engine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu sync.Mutex
}

// Start launches path (with args) and performs the "uci"/"uciok" handshake.
func Start(path string, args ...string) (*Engine, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("uciclient: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("uciclient: stdout pipe: %w", err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("uciclient: start %s: %w", path, err)
	}

	e := &Engine{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}

	if err := e.send("uci"); err != nil {
		return nil, err
	}
	if err := e.waitFor("uciok", 5*time.Second); err != nil {
		return nil, fmt.Errorf("uciclient: handshake with %s: %w", path, err)
	}
	return e, nil
}

func (e *Engine) send(cmd string) error {
	_, err := fmt.Fprintf(e.stdin, "%s\n", cmd)
	return err
}

// waitFor blocks until a line equal to token is read, or timeout elapses.
func (e *Engine) waitFor(token string, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		for {
			line, err := e.stdout.ReadString('\n')
			if err != nil {
				done <- err
				return
			}
			if strings.TrimSpace(line) == token {
				done <- nil
				return
			}
		}
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out waiting for %q", token)
	}
}

// Configure applies UCI options via "setoption name X value Y", skipping
// nothing — callers are responsible for filtering non-UCI metadata keys
// before calling this (e.g. a descriptive "Description" field from a config
// file section).
func (e *Engine) Configure(options map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, value := range options {
		if err := e.send(fmt.Sprintf("setoption name %s value %s", name, value)); err != nil {
			return err
		}
	}
	return nil
}

// NewGame sends "ucinewgame" and waits for "isready"/"readyok".
func (e *Engine) NewGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.send("ucinewgame"); err != nil {
		return err
	}
	if err := e.send("isready"); err != nil {
		return err
	}
	return e.waitFor("readyok", 5*time.Second)
}

// BestMove sets the position to fen plus the given UCI move history and
// asks the engine for its best move within timeLimit, returning the move's
// UCI string (e.g. "e2e4", "e7e8q").
func (e *Engine) BestMove(fen string, moveHistory []string, timeLimit time.Duration) (string, error) {
	return e.BestMoveConstrained(fen, moveHistory, nil, timeLimit)
}

// BestMoveConstrained is BestMove with an optional UCI "searchmoves"
// restriction, used by HandBrainPlayer's REVERSE mode to limit the engine
// to moves of a single piece type.
func (e *Engine) BestMoveConstrained(fen string, moveHistory, searchMoves []string, timeLimit time.Duration) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	posCmd := "position fen " + fen
	if len(moveHistory) > 0 {
		posCmd += " moves " + strings.Join(moveHistory, " ")
	}
	if err := e.send(posCmd); err != nil {
		return "", err
	}

	movetimeMs := int(timeLimit / time.Millisecond)
	if movetimeMs < 1 {
		movetimeMs = 1
	}
	goCmd := fmt.Sprintf("go movetime %d", movetimeMs)
	if len(searchMoves) > 0 {
		goCmd += " searchmoves " + strings.Join(searchMoves, " ")
	}
	if err := e.send(goCmd); err != nil {
		return "", err
	}

	deadline := timeLimit + 5*time.Second
	return e.readBestMove(deadline)
}

func (e *Engine) readBestMove(timeout time.Duration) (string, error) {
	type result struct {
		move string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		for {
			line, err := e.stdout.ReadString('\n')
			if err != nil {
				done <- result{err: err}
				return
			}
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "bestmove") {
				fields := strings.Fields(line)
				if len(fields) < 2 {
					done <- result{err: fmt.Errorf("uciclient: malformed bestmove line %q", line)}
					return
				}
				done <- result{move: fields[1]}
				return
			}
		}
	}()
	select {
	case r := <-done:
		return r.move, r.err
	case <-time.After(timeout):
		return "", fmt.Errorf("uciclient: timed out waiting for bestmove")
	}
}

// Quit sends "quit" and waits for the process to exit, killing it after a
// grace period if it does not.
func (e *Engine) Quit() error {
	e.mu.Lock()
	_ = e.send("quit")
	e.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		_ = e.cmd.Process.Kill()
		return <-done
	}
}

// ParseUCIMove decodes a UCI-style move string ("e2e4", "e7e8q") into a
// board.Move. Delegates to the chess engine's own parser so the two stay in
// lockstep on promotion-letter handling.
func ParseUCIMove(pos *board.Position, uci string) (board.Move, error) {
	return board.ParseMove(uci, pos)
}

// FormatMovetime renders a time.Duration the way UCI's "go movetime"
// expects: whole milliseconds, minimum 1.
func FormatMovetime(d time.Duration) string {
	ms := int(d / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return strconv.Itoa(ms)
}
