package game

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/centaurcore/gamecore/internal/board"
	"github.com/centaurcore/gamecore/internal/uciclient"
)

// EngineConfig configures an EnginePlayer.
type EngineConfig struct {
	EngineName   string // e.g. "gamecore-uci", "stockfish"
	EnginePath   string // full path; if empty, resolved via EngineSearchPaths
	EloSection   string // section name in EnginePath+".uci"
	TimeLimit    time.Duration
	ExtraOptions map[string]string // overrides file-loaded options
}

// EngineSearchPaths is consulted, in order, when EngineConfig.EnginePath is
// empty. Overridable in tests.
var EngineSearchPaths = []string{"./engines", "/usr/local/share/gamecore/engines"}

// EnginePlayer drives a UCI engine subprocess. Initialization and thinking
// both run on background goroutines so a slow-loading engine never blocks
// game startup (original_source/.../players/engine.py).
type EnginePlayer struct {
	BasePlayer

	cfg EngineConfig

	mu         sync.Mutex
	client     *uciclient.Engine
	uciOptions map[string]string
	thinking   bool
}

// NewEnginePlayer returns an EnginePlayer in the UNINITIALIZED state.
func NewEnginePlayer(cfg EngineConfig) *EnginePlayer {
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = 5 * time.Second
	}
	if cfg.EloSection == "" {
		cfg.EloSection = "Default"
	}
	ep := &EnginePlayer{
		BasePlayer: newBasePlayer(PlayerEngine, fmt.Sprintf("%s (%s)", cfg.EngineName, cfg.EloSection), Capabilities{
			CanResign:            false,
			SupportsTakeback:     true,
			SupportsLateCastling: true,
		}),
		cfg: cfg,
	}
	ep.doRequestMove = ep.requestMove
	ep.onMoveFormed = ep.moveFormed
	return ep
}

// Start resolves the engine executable, loads its UCI options file, and
// launches the subprocess on a background goroutine.
func (ep *EnginePlayer) Start() error {
	switch ep.State() {
	case StateUninitialized, StateStopped:
	default:
		return fmt.Errorf("engine %s: cannot start from state %s", ep.cfg.EngineName, ep.State())
	}

	ep.setState(StateInitializing)

	path, err := ep.resolveEnginePath()
	if err != nil {
		ep.setState(StateError)
		ep.reportError("engine_not_found")
		return err
	}

	options := loadUCIOptions(path+".uci", ep.cfg.EloSection)
	for k, v := range ep.cfg.ExtraOptions {
		options[k] = v
	}

	go func() {
		client, err := uciclient.Start(path)
		if err != nil {
			ep.setState(StateError)
			ep.reportError("engine_init_failed")
			return
		}
		if len(options) > 0 {
			_ = client.Configure(options)
		}
		_ = client.NewGame()

		ep.mu.Lock()
		ep.client = client
		ep.uciOptions = options
		ep.mu.Unlock()

		ep.setState(StateReady)
	}()

	return nil
}

// Stop quits the subprocess, if running, and transitions to STOPPED.
func (ep *EnginePlayer) Stop() {
	ep.mu.Lock()
	client := ep.client
	ep.client = nil
	ep.mu.Unlock()

	if client != nil {
		_ = client.Quit()
	}
	ep.setState(StateStopped)
}

func (ep *EnginePlayer) requestMove(pos *board.Position) {
	ep.mu.Lock()
	if ep.thinking {
		ep.mu.Unlock()
		return
	}
	if _, has := ep.PendingMove(); has {
		ep.mu.Unlock()
		return
	}
	client := ep.client
	ep.thinking = true
	ep.mu.Unlock()

	if client == nil {
		ep.mu.Lock()
		ep.thinking = false
		ep.mu.Unlock()
		return
	}

	ep.setState(StateThinking)
	fen := pos.ToFEN()

	go func() {
		defer func() {
			ep.mu.Lock()
			ep.thinking = false
			stillThinking := ep.State() == StateThinking
			ep.mu.Unlock()
			if stillThinking {
				ep.setState(StateReady)
			}
		}()

		ep.mu.Lock()
		if len(ep.uciOptions) > 0 {
			_ = client.Configure(ep.uciOptions)
		}
		ep.mu.Unlock()

		uciMove, err := client.BestMove(fen, nil, ep.cfg.TimeLimit)
		if err != nil || uciMove == "" || uciMove == "0000" {
			ep.reportError("engine_no_move")
			return
		}
		m, err := uciclient.ParseUCIMove(pos, uciMove)
		if err != nil {
			ep.reportError("engine_illegal_move")
			return
		}
		ep.setPendingMove(m)
	}()
}

// moveFormed validates a physically-formed move against the engine's
// pending move, including the destination-only recovery for a missed LIFT
// event (original_source/.../engine.py `_on_move_formed`).
func (ep *EnginePlayer) moveFormed(formed board.Move, pos *board.Position) {
	pending, has := ep.PendingMove()
	if !has {
		ep.reportError("move_mismatch")
		return
	}

	if formed.From() == formed.To() {
		if formed.To() == pending.To() {
			ep.submitMove(pending)
		} else {
			ep.reportError("move_mismatch")
		}
		return
	}

	if formed.From() == pending.From() && formed.To() == pending.To() {
		ep.submitMove(pending)
		return
	}

	ep.reportError("move_mismatch")
}

func (ep *EnginePlayer) OnMoveMade(m board.Move, pos *board.Position) {
	ep.clearPendingMove()
}

func (ep *EnginePlayer) OnNewGame() {
	ep.mu.Lock()
	client := ep.client
	ep.mu.Unlock()
	if client != nil {
		_ = client.NewGame()
	}
}

func (ep *EnginePlayer) GetInfo() map[string]string {
	info := ep.BasePlayer.GetInfo()
	info["engine"] = ep.cfg.EngineName
	info["elo"] = ep.cfg.EloSection
	info["description"] = fmt.Sprintf("%s @ %s", ep.cfg.EngineName, ep.cfg.EloSection)
	return info
}

func (ep *EnginePlayer) resolveEnginePath() (string, error) {
	if ep.cfg.EnginePath != "" {
		if _, err := os.Stat(ep.cfg.EnginePath); err == nil {
			return ep.cfg.EnginePath, nil
		}
	}
	for _, dir := range EngineSearchPaths {
		candidate := filepath.Join(dir, ep.cfg.EngineName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("engine not found: %s", ep.cfg.EngineName)
}

// loadUCIOptions parses a ".uci" config file (plain INI: "[Section]" headers,
// "key = value" lines, "#"/";" comments) and returns the options for
// section, falling back to "DEFAULT" if section is absent. No INI-parsing
// library appears anywhere in the retrieved corpus, and the format is a
// handful of flat key/value lines, so a direct bufio.Scanner parse is used
// rather than introducing a dependency with no grounding.
func loadUCIOptions(path, section string) map[string]string {
	options := make(map[string]string)
	f, err := os.Open(path)
	if err != nil {
		return options
	}
	defer f.Close()

	sections := make(map[string]map[string]string)
	current := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSpace(line[1 : len(line)-1])
			sections[current] = make(map[string]string)
			continue
		}
		if current == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "Description" {
			continue
		}
		sections[current][key] = strings.TrimSpace(parts[1])
	}

	if vals, ok := sections[section]; ok {
		return vals
	}
	return sections["DEFAULT"]
}
