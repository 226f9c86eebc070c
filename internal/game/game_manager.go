package game

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/centaurcore/gamecore/internal/board"
)

// kingLiftResignDelay is how long a king must stay lifted before the
// resign/draw menu is offered.
const kingLiftResignDelay = 3 * time.Second

// GameManager owns the logical game, reconciles it against physical piece
// events, and orchestrates player move requests. It is the single point of
// contact between the board driver and everything else in this package.
//
// All mutation of Board/MoveState/CorrectionMode happens on the game
// goroutine started by Start; ReceiveField and ReceiveKey only enqueue work
// onto it. Fields touched from other goroutines (callbacks, collaborators)
// are guarded by mu.
type GameManager struct {
	mu sync.Mutex

	Board      *LogicalBoard
	MoveState  *MoveState
	Correction CorrectionMode

	boardDriver   BoardDriver
	led           LedCallbacks
	playerManager *PlayerManager
	persistence   Persistence
	clock         ClockService
	analysis      AnalysisState

	eventCallback     EventCallback
	moveCallback      MoveCallback
	keyCallback       KeyCallback
	takebackCallback  TakebackCallback
	onPromotionNeeded PromotionCallback

	onBackPressed          func()
	onKingsInCenter        func()
	onKingsInCenterCancel  func()
	onKingLiftResign       func(board.Color)
	onKingLiftResignCancel func()
	onTerminalPosition     func(result string, termination Termination)
	broadcastPendingMove   func(uci string, ok bool)

	ready  bool
	queued []func()
	events chan func()
	stop   chan struct{}
	wg     sync.WaitGroup

	taskWorker *TaskWorker

	saveToDatabase bool
	gameDBID       int64
	hasGameDBID    bool

	kingsInCenterMenuActive  bool
	kingLiftResignMenuActive bool

	hasPendingHint                 bool
	pendingHintFrom, pendingHintTo board.Square

	isShowingPromotion bool
}

// NewGameManager returns a manager with a fresh starting position. It must
// still be wired with SetLedCallbacks and, usually, SetPlayerManager before
// Start.
func NewGameManager(driver BoardDriver, persistence Persistence, saveToDatabase bool) *GameManager {
	gm := &GameManager{
		Board:          NewLogicalBoard(),
		MoveState:      NewMoveState(),
		boardDriver:    driver,
		persistence:    persistence,
		saveToDatabase: saveToDatabase,
		events:         make(chan func(), 64),
		stop:           make(chan struct{}),
		taskWorker:     NewTaskWorker(),
		hasGameDBID:    false,
	}
	gm.MoveState.OnReset = func() { gm.broadcastPendingMoveLocked("", false) }
	return gm
}

func (gm *GameManager) broadcastPendingMoveLocked(uci string, ok bool) {
	gm.mu.Lock()
	cb := gm.broadcastPendingMove
	gm.mu.Unlock()
	if cb != nil {
		cb(uci, ok)
	}
}

// SetEventCallback, SetMoveCallback, SetKeyCallback, SetTakebackCallback wire
// the four callbacks subscribe_game would take in the original design.
func (gm *GameManager) SetEventCallback(fn EventCallback)       { gm.eventCallback = fn }
func (gm *GameManager) SetMoveCallback(fn MoveCallback)         { gm.moveCallback = fn }
func (gm *GameManager) SetKeyCallback(fn KeyCallback)           { gm.keyCallback = fn }
func (gm *GameManager) SetTakebackCallback(fn TakebackCallback) { gm.takebackCallback = fn }

func (gm *GameManager) SetPromotionCallback(fn PromotionCallback) { gm.onPromotionNeeded = fn }
func (gm *GameManager) SetBackPressedCallback(fn func())          { gm.onBackPressed = fn }
func (gm *GameManager) SetKingsInCenterCallback(fn func())        { gm.onKingsInCenter = fn }
func (gm *GameManager) SetKingsInCenterCancelCallback(fn func())  { gm.onKingsInCenterCancel = fn }
func (gm *GameManager) SetKingLiftResignCallback(fn func(board.Color)) {
	gm.onKingLiftResign = fn
}
func (gm *GameManager) SetKingLiftResignCancelCallback(fn func()) { gm.onKingLiftResignCancel = fn }
func (gm *GameManager) SetTerminalPositionCallback(fn func(result string, termination Termination)) {
	gm.onTerminalPosition = fn
}
func (gm *GameManager) SetClockService(c ClockService)   { gm.clock = c }
func (gm *GameManager) SetAnalysisState(a AnalysisState) { gm.analysis = a }
func (gm *GameManager) SetBroadcastPendingMove(fn func(uci string, ok bool)) {
	gm.mu.Lock()
	gm.broadcastPendingMove = fn
	gm.mu.Unlock()
}

// SetLedCallbacks stores the LED interface. Required before play starts;
// any code path that uses gm.led while unset will panic on the nil
// interface, matching the "panic on use if unset" failure semantics.
func (gm *GameManager) SetLedCallbacks(led LedCallbacks) {
	gm.mu.Lock()
	gm.led = led
	gm.mu.Unlock()
}

func (gm *GameManager) led2() LedCallbacks {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.led
}

// errNotPlayerManager guards against a nil *PlayerManager, which would
// otherwise silently disable move orchestration.
var errNotPlayerManager = errors.New("game: player manager must not be nil")

// SetPlayerManager wires move, pending-move, and error callbacks from pm
// into this manager, and records player names into no-op defaults (no web
// UI layer exists in this port).
func (gm *GameManager) SetPlayerManager(pm *PlayerManager) error {
	if pm == nil {
		return errNotPlayerManager
	}
	gm.mu.Lock()
	gm.playerManager = pm
	gm.mu.Unlock()

	pm.SetMoveCallback(gm.onPlayerMove)
	pm.SetPendingMoveCallback(gm.onPendingMove)
	pm.SetErrorCallback(gm.onPlayerError)
	return nil
}

func (gm *GameManager) playerManagerRef() *PlayerManager {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.playerManager
}

// Start launches the game goroutine (the single consumer of field events)
// and the post-move task worker, then replays any events queued before
// Start was called.
func (gm *GameManager) Start() {
	gm.taskWorker.Start()
	gm.wg.Add(1)
	go gm.runGameThread()
}

func (gm *GameManager) runGameThread() {
	defer gm.wg.Done()

	gm.mu.Lock()
	queued := gm.queued
	gm.queued = nil
	gm.ready = true
	gm.mu.Unlock()

	for _, fn := range queued {
		fn()
	}

	for {
		select {
		case fn := <-gm.events:
			fn()
		case <-gm.stop:
			return
		}
	}
}

// Stop shuts down the game goroutine and the task worker, then closes the
// persistence collaborator.
func (gm *GameManager) Stop() {
	close(gm.stop)
	gm.wg.Wait()
	gm.taskWorker.Stop()
	if gm.persistence != nil {
		if err := gm.persistence.Close(); err != nil {
			log.Printf("[GameManager] error closing persistence: %v", err)
		}
	}
}

// enqueue runs fn on the game goroutine, queuing it if the thread has not
// started yet.
func (gm *GameManager) enqueue(fn func()) {
	gm.mu.Lock()
	if !gm.ready {
		gm.queued = append(gm.queued, fn)
		gm.mu.Unlock()
		return
	}
	gm.mu.Unlock()
	gm.events <- fn
}

// ReceiveField processes one physical LIFT/PLACE event. If the game thread
// is not yet ready the event is queued and replayed in order once it is.
func (gm *GameManager) ReceiveField(eventType PieceEventType, field board.Square, seconds float64) {
	gm.enqueue(func() {
		gm.processFieldEvent(eventType, field, seconds)
	})
}

// ReceiveKey routes BACK to the resign/draw menu if a game is in progress,
// otherwise forwards to the external key callback.
func (gm *GameManager) ReceiveKey(key Key) {
	gm.enqueue(func() {
		if key == KeyBack {
			if gm.isGameInProgress() {
				if gm.onBackPressed != nil {
					gm.onBackPressed()
				}
				return
			}
		}
		if gm.keyCallback != nil {
			gm.keyCallback(key)
		}
	})
}

func (gm *GameManager) isGameInProgress() bool {
	return !gm.Board.IsGameOver()
}

// ComputerMove validates uci as a legal move in the live position and, if
// so, records it as a forced move and lights LEDs from/to. Silently returns
// (with a wrong-move beep) if illegal or the game has already ended.
func (gm *GameManager) ComputerMove(uci string, forced bool) {
	gm.enqueue(func() {
		if gm.Board.IsGameOver() {
			return
		}
		m, err := board.ParseMove(uci, gm.Board.Position())
		if err != nil || !gm.Board.IsLegal(m) {
			gm.beep(SoundWrongMove)
			return
		}
		gm.MoveState.SetComputerMove(uci, forced)
		gm.broadcastPendingMoveLocked(uci, true)
		gm.led2().Off()
		gm.led2().FromTo(m.From(), m.To(), 0)
	})
}

// SetPendingHint arms a hint LED pattern to be shown once correction mode
// exits (if it is currently active) or immediately otherwise.
func (gm *GameManager) SetPendingHint(from, to board.Square) {
	gm.enqueue(func() {
		gm.hasPendingHint = true
		gm.pendingHintFrom = from
		gm.pendingHintTo = to
		if !gm.Correction.Active {
			gm.showPendingHint()
		}
	})
}

func (gm *GameManager) ClearPendingHint() {
	gm.enqueue(func() {
		gm.hasPendingHint = false
	})
}

func (gm *GameManager) showPendingHint() {
	if !gm.hasPendingHint {
		return
	}
	gm.hasPendingHint = false
	gm.led2().FromToHint(gm.pendingHintFrom, gm.pendingHintTo, 0)
}

// HandleResign records a resignation by color (or, if color is unset, the
// side to move), beeps, and clears LEDs.
func (gm *GameManager) HandleResign(c board.Color, hasColor bool) {
	gm.enqueue(func() {
		resigning := c
		if !hasColor {
			resigning = gm.Board.Turn()
		}
		result := "0-1"
		if resigning == board.Black {
			result = "1-0"
		}
		gm.finishGame(result, TerminationResign)
	})
}

// HandleDraw records a draw by agreement.
func (gm *GameManager) HandleDraw() {
	gm.enqueue(func() {
		gm.finishGame("1/2-1/2", TerminationDrawAgreement)
	})
}

// HandleFlag records a time forfeit for the given color.
func (gm *GameManager) HandleFlag(c board.Color) {
	gm.enqueue(func() {
		result := "0-1"
		if c == board.Black {
			result = "1-0"
		}
		gm.finishGame(result, TerminationTimeForfeit)
	})
}

func (gm *GameManager) finishGame(result string, termination Termination) {
	gm.Board.SetResult(Outcome{Result: result, Termination: termination})
	gm.beep(SoundGeneral)
	gm.led2().Off()
	if gm.eventCallback != nil {
		gm.eventCallback(EventTermination, board.NoSquare, 0, string(termination))
	}
	if gm.onTerminalPosition != nil {
		gm.onTerminalPosition(result, termination)
	}
	gm.enqueuePostMoveTasks(gm.Board.FEN(), true)
}

func (gm *GameManager) beep(sound Sound) {
	if gm.boardDriver != nil {
		gm.boardDriver.Beep(sound, "game_event")
	}
}

// resetKingsInCenterMenu and resetKingLiftResignMenu clear the two
// resign/draw-gesture menu flags without firing their cancel callbacks
// (used on a fresh game / explicit reset, as opposed to a user-initiated
// cancellation).
func (gm *GameManager) resetKingsInCenterMenu() { gm.kingsInCenterMenuActive = false }
func (gm *GameManager) resetKingLiftResignMenu() {
	gm.kingLiftResignMenuActive = false
	gm.MoveState.CancelKingLiftTimer()
}

// resetGame returns the logical board and move/correction state to a fresh
// game, firing NEW_GAME and re-requesting a move for White.
func (gm *GameManager) resetGame() {
	gm.Board.Reset()
	gm.MoveState.Reset()
	gm.Correction = CorrectionMode{}
	gm.resetKingsInCenterMenu()
	gm.resetKingLiftResignMenu()
	gm.mu.Lock()
	gm.hasGameDBID = false
	gm.gameDBID = 0
	gm.mu.Unlock()
	gm.hasPendingHint = false

	if gm.eventCallback != nil {
		gm.eventCallback(EventNewGame, board.NoSquare, 0, "")
	}
	if pm := gm.playerManagerRef(); pm != nil {
		pm.OnNewGame()
	}
	gm.led2().Off()
	gm.switchTurnWithEvent()
}

// chessBoardToState projects pos onto its 64-byte piece-presence state.
func (gm *GameManager) chessBoardToState(pos *board.Position) [board.PresenceSize]byte {
	return pos.PresenceState()
}

// switchTurnWithEvent fires the white/black-turn event for the side now to
// move and asks the player manager for its move.
func (gm *GameManager) switchTurnWithEvent() {
	kind := EventWhiteTurn
	if gm.Board.Turn() == board.Black {
		kind = EventBlackTurn
	}
	if gm.eventCallback != nil {
		gm.eventCallback(kind, board.NoSquare, 0, "")
	}
	if pm := gm.playerManagerRef(); pm != nil {
		pm.RequestMove(gm.Board.Position())
	}
}

// enterCorrectionMode snapshots the current logical position as the
// expected physical state and marks correction mode active.
func (gm *GameManager) enterCorrectionMode() {
	gm.Correction.Enter(gm.chessBoardToState(gm.Board.Position()))
}

// provideCorrectionGuidance drives LED guidance toward the correction
// snapshot, refreshing it first since the logical board may have advanced
// since Enter (forced-move execution, takeback) while correction was
// active.
func (gm *GameManager) provideCorrectionGuidance() {
	expected := gm.chessBoardToState(gm.Board.Position())
	gm.Correction.Refresh(expected)
	current, ok := gm.boardDriver.GetChessState()
	if !ok {
		return
	}
	kingsInCenterEnabled := !gm.Board.IsGameOver() && !gm.kingsInCenterMenuActive
	ProvideCorrectionGuidance(gm.led2(), gm.Board.Position(), current, expected, kingsInCenterEnabled, gm.onKingsInCenterDetected)
}

func (gm *GameManager) onKingsInCenterDetected() {
	gm.Correction.Exit()
	gm.MoveState.ResetPartial()
	gm.kingsInCenterMenuActive = true
	if gm.onKingsInCenter != nil {
		gm.onKingsInCenter()
	}
}

// exitCorrectionMode clears correction state, restores LEDs, and then
// either restores a still-pending forced move's LEDs, shows a deferred
// hint, or fires the turn-switch event — in that priority order.
func (gm *GameManager) exitCorrectionMode() {
	gm.Correction.Exit()
	gm.MoveState.ResetPartial()
	gm.led2().Off()

	if gm.Board.IsGameOver() {
		return
	}

	if gm.MoveState.ComputerMoveUCI != "" {
		if m, err := board.ParseMove(gm.MoveState.ComputerMoveUCI, gm.Board.Position()); err == nil {
			gm.led2().FromTo(m.From(), m.To(), 0)
		}
	} else if gm.hasPendingHint {
		gm.showPendingHint()
	} else {
		gm.switchTurnWithEvent()
	}

	if pm := gm.playerManagerRef(); pm != nil {
		pm.GetPlayer(gm.Board.Turn()).OnCorrectionModeExit()
	}
}

// checkTakeback reports whether the physical state matches the position one
// ply before the current one (i.e. the user has physically undone the last
// move), and if so performs the takeback: pops the move, deletes the
// persisted row, fires the takeback callback, and either restores a still-
// pending forced move's guidance LEDs or re-requests a move for the side now
// to move. Runs a low-priority physical re-validation afterward, which may
// itself re-enter correction mode if something is still off.
func (gm *GameManager) checkTakeback(current [board.PresenceSize]byte) bool {
	if !gm.playerManagerSupportsTakeback() {
		return false
	}
	previous, ok := gm.Board.PreviousPresenceState()
	if !ok || !ChessStatesEqual(current, previous) {
		return false
	}

	gm.led2().Off()

	var forcedUCI string
	if gm.MoveState.IsForcedMove {
		forcedUCI = gm.MoveState.ComputerMoveUCI
	}

	if id, has := gm.currentGameDBID(); gm.saveToDatabase && gm.persistence != nil && has {
		if err := gm.persistence.DeleteLastMove(id); err != nil {
			log.Printf("[GameManager] takeback delete failed: %v", err)
		}
	}

	gm.Board.Pop()
	gm.MoveState.Reset()
	gm.beep(SoundGeneral)

	if gm.takebackCallback != nil {
		gm.takebackCallback()
	}
	if pm := gm.playerManagerRef(); pm != nil {
		pm.OnTakeback(gm.Board.Position())
	}

	restored := false
	if forcedUCI != "" {
		if m, err := board.ParseMove(forcedUCI, gm.Board.Position()); err == nil && gm.Board.IsLegal(m) {
			gm.MoveState.SetComputerMove(forcedUCI, true)
			gm.led2().FromTo(m.From(), m.To(), 0)
			restored = true
		}
	}
	if !restored {
		gm.switchTurnWithEvent()
	}

	gm.validatePhysicalBoardAfterMove()
	return true
}

func (gm *GameManager) playerManagerSupportsTakeback() bool {
	pm := gm.playerManagerRef()
	return pm != nil && pm.SupportsTakeback()
}

// ChessStatesEqual compares two piece-presence projections.
func ChessStatesEqual(a, b [board.PresenceSize]byte) bool {
	return a == b
}

// handlePromotion asks the promotion callback (defaulting to queen if none
// set) for the promotion piece for a pawn reaching the last rank.
func (gm *GameManager) handlePromotion(isWhitePromotion bool) board.PieceType {
	if gm.onPromotionNeeded == nil {
		return board.Queen
	}
	gm.isShowingPromotion = true
	defer func() { gm.isShowingPromotion = false }()
	switch gm.onPromotionNeeded(isWhitePromotion) {
	case "r":
		return board.Rook
	case "b":
		return board.Bishop
	case "n":
		return board.Knight
	default:
		return board.Queen
	}
}

// updateGameResult records the given result/termination on the logical
// board and persists it if a game row exists.
func (gm *GameManager) updateGameResult(result string, termination Termination) {
	gm.Board.SetResult(Outcome{Result: result, Termination: termination})
	if gm.eventCallback != nil {
		gm.eventCallback(EventTermination, board.NoSquare, 0, string(termination))
	}
	if gm.onTerminalPosition != nil {
		gm.onTerminalPosition(result, termination)
	}
	if id, has := gm.currentGameDBID(); gm.saveToDatabase && gm.persistence != nil && has {
		if err := gm.persistence.UpdateResult(id, result); err != nil {
			log.Printf("[GameManager] update result failed: %v", err)
		}
	}
}
