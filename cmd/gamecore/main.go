// Command gamecore assembles GameManager, PlayerManager, real storage, and
// a background analysis watcher into a runnable whole, driven from stdin
// rather than physical board hardware. Raw serial framing for real board
// hardware is an out-of-core collaborator's concern (see internal/game's
// BoardDriver/LedCallbacks interfaces); consoleBoard below is a stand-in
// that lets this entrypoint exercise the full stack end to end without it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/centaurcore/gamecore/internal/analysis"
	"github.com/centaurcore/gamecore/internal/board"
	"github.com/centaurcore/gamecore/internal/engine"
	"github.com/centaurcore/gamecore/internal/game"
	"github.com/centaurcore/gamecore/internal/storage"
)

var hashMB = flag.Int("hash", 64, "engine transposition table size in MB")

func main() {
	flag.Parse()

	prefsDB, err := storage.NewStorage()
	if err != nil {
		log.Fatalf("gamecore: open preferences/stats database: %v", err)
	}
	defer prefsDB.Close()

	gameStore, err := storage.NewGameStore()
	if err != nil {
		log.Fatalf("gamecore: open game-record database: %v", err)
	}
	defer gameStore.Close()

	prefs, err := prefsDB.LoadPreferences()
	if err != nil {
		log.Fatalf("gamecore: load preferences: %v", err)
	}

	eng := engine.NewEngine(*hashMB)
	watcher := analysis.NewWatcher(eng)

	driver := newConsoleBoard()
	gm := game.NewGameManager(driver, gameStore, true)
	gm.SetLedCallbacks(driver)
	gm.SetAnalysisState(watcher)

	pm := game.NewPlayerManager(game.NewHumanPlayer("White"), game.NewHumanPlayer("Black"))
	if err := gm.SetPlayerManager(pm); err != nil {
		log.Fatalf("gamecore: set player manager: %v", err)
	}

	gameStart := time.Now()
	gm.SetEventCallback(func(kind game.EventKind, field board.Square, seconds float64, detail string) {
		if kind != game.EventTermination {
			return
		}
		log.Printf("gamecore: game over: %s", detail)
		result := storage.GameResult{
			Mode:       prefs.GameMode,
			Difficulty: prefs.Difficulty,
			EvalMode:   prefs.EvalMode,
			Duration:   time.Since(gameStart),
		}
		switch game.Termination(detail) {
		case game.TerminationStalemate, game.TerminationInsufficientMaterial,
			game.TerminationFiftyMoves, game.TerminationThreefoldRepetition,
			game.TerminationDrawAgreement:
			result.Draw = true
		case game.TerminationCheckmate:
			// The side to move when the game ended is the side that was
			// checkmated, so the other side won.
			result.Won = gm.Board.Turn() == board.Black
		}
		if err := prefsDB.RecordGame(result); err != nil {
			log.Printf("gamecore: record game stats: %v", err)
		}
	})

	pm.Start()
	gm.Start()
	defer gm.Stop()

	watcher.Update(gm.Board.Position())

	log.Printf("gamecore: ready. Enter moves in UCI form (e.g. e2e4, e7e8q), or \"quit\".")
	runConsole(gm, driver, watcher)
}

// runConsole reads UCI move strings from stdin and drives them through
// GameManager as a LIFT/PLACE pair, updating the console board's presence
// state to match in between — the same sequencing newTestManager's
// fakeBoardDriver uses in tests, just sourced from a human at a terminal
// instead of a fixture.
func runConsole(gm *game.GameManager, driver *consoleBoard, watcher *analysis.Watcher) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		m, err := board.ParseMove(line, gm.Board.Position())
		if err != nil {
			fmt.Printf("gamecore: %q is not a legal move: %v\n", line, err)
			continue
		}

		gm.ReceiveField(game.EventLift, m.From(), 0)

		sim := gm.Board.Position().Copy()
		sim.MakeMove(m)
		driver.setState(sim.PresenceState())

		gm.ReceiveField(game.EventPlace, m.To(), 0)

		watcher.Update(gm.Board.Position())
		fmt.Printf("%s\n", gm.Board.FEN())
	}
}

// consoleBoard is a stand-in BoardDriver/LedCallbacks: it holds whatever
// presence state runConsole last told it to, and logs LED guidance instead
// of driving real hardware.
type consoleBoard struct {
	state [board.PresenceSize]byte
	ok    bool
}

func newConsoleBoard() *consoleBoard {
	b := &consoleBoard{}
	b.setState(board.NewPosition().PresenceState())
	return b
}

func (c *consoleBoard) setState(s [board.PresenceSize]byte) {
	c.state = s
	c.ok = true
}

func (c *consoleBoard) GetChessState() ([board.PresenceSize]byte, bool) {
	return c.state, c.ok
}

func (c *consoleBoard) GetChessStateLowPriority() ([board.PresenceSize]byte, bool) {
	return c.state, c.ok
}

func (c *consoleBoard) Beep(sound game.Sound, eventType string) {
	log.Printf("gamecore: beep %d (%s)", sound, eventType)
}

func (c *consoleBoard) Off()                                   {}
func (c *consoleBoard) SingleFast(sq board.Square, repeat int) { log.Printf("gamecore: led %s", sq) }
func (c *consoleBoard) FromTo(from, to board.Square, repeat int) {
	log.Printf("gamecore: led %s->%s", from, to)
}
func (c *consoleBoard) FromToFast(from, to board.Square, repeat int) {
	log.Printf("gamecore: led %s->%s (fast)", from, to)
}
func (c *consoleBoard) FromToHint(from, to board.Square, repeat int) {
	log.Printf("gamecore: led hint %s->%s", from, to)
}
func (c *consoleBoard) ArrayFast(squares []board.Square, repeat int) {}
