package uciclient

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// TestHelperProcess is not a real test. It is re-executed as a subprocess by
// startFakeEngine, acting as a minimal UCI engine over stdin/stdout. This is
// the standard os/exec "fake subprocess" pattern (see os/exec_test.go).
func TestHelperProcess(t *testing.T) {
	if os.Getenv("UCICLIENT_WANT_HELPER_PROCESS") != "1" {
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "uci":
			fmt.Println("id name fakeengine")
			fmt.Println("uciok")
		case line == "isready":
			fmt.Println("readyok")
		case line == "ucinewgame":
			// no reply expected here; NewGame follows up with isready itself.
		case strings.HasPrefix(line, "go "):
			fmt.Println("bestmove e2e4")
		case line == "quit":
			os.Exit(0)
		}
	}
}

// startFakeEngine launches this same test binary as the engine subprocess,
// routed into TestHelperProcess above.
func startFakeEngine(t *testing.T) *Engine {
	t.Helper()

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}

	e, err := startWithEnv(exe, []string{"UCICLIENT_WANT_HELPER_PROCESS=1"},
		"-test.run=TestHelperProcess")
	if err != nil {
		t.Fatalf("startFakeEngine: %v", err)
	}
	t.Cleanup(func() { _ = e.Quit() })
	return e
}

// startWithEnv mirrors Start but lets tests inject extra environment
// variables into the subprocess without changing Start's public signature.
func startWithEnv(path string, extraEnv []string, args ...string) (*Engine, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), extraEnv...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	e := &Engine{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := e.send("uci"); err != nil {
		return nil, err
	}
	if err := e.waitFor("uciok", 5*time.Second); err != nil {
		return nil, err
	}
	return e, nil
}

func TestEngineHandshakeAndNewGame(t *testing.T) {
	e := startFakeEngine(t)
	if err := e.NewGame(); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
}

func TestEngineBestMove(t *testing.T) {
	e := startFakeEngine(t)

	move, err := e.BestMove("startpos", nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if move != "e2e4" {
		t.Fatalf("expected bestmove e2e4, got %q", move)
	}
}

func TestFormatMovetime(t *testing.T) {
	cases := map[time.Duration]string{
		0:                      "1",
		500 * time.Millisecond: "500",
		2 * time.Second:        "2000",
	}
	for d, want := range cases {
		if got := FormatMovetime(d); got != want {
			t.Errorf("FormatMovetime(%v) = %q, want %q", d, got, want)
		}
	}
}
