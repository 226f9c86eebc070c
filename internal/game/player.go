package game

import (
	"sync"

	"github.com/centaurcore/gamecore/internal/board"
)

// PlayerState is the Player lifecycle state machine. Transitions are
// one-directional except THINKING<->READY; any state may move to STOPPED.
type PlayerState int

const (
	StateUninitialized PlayerState = iota
	StateInitializing
	StateReady
	StateThinking
	StateError
	StateStopped
)

func (s PlayerState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitializing:
		return "INITIALIZING"
	case StateReady:
		return "READY"
	case StateThinking:
		return "THINKING"
	case StateError:
		return "ERROR"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// PlayerType determines move-source semantics.
type PlayerType int

const (
	PlayerHuman PlayerType = iota
	PlayerEngine
	PlayerLichess
	PlayerRemote
)

func (t PlayerType) String() string {
	switch t {
	case PlayerHuman:
		return "HUMAN"
	case PlayerEngine:
		return "ENGINE"
	case PlayerLichess:
		return "LICHESS"
	case PlayerRemote:
		return "REMOTE"
	default:
		return "UNKNOWN"
	}
}

// Capabilities is an explicit policy-flag record, used in place of relying
// on whether a hook override exists.
type Capabilities struct {
	CanResign            bool
	SupportsTakeback     bool
	SupportsLateCastling bool
}

// Player is the narrow interface GameManager and PlayerManager depend on.
// Move submission returns a bool (accepted/rejected) rather than flowing
// through a duck-typed callback, so Engine/Lichess players can tell whether
// to forward the move to their own backend.
type Player interface {
	Color() board.Color
	SetColor(c board.Color)
	Type() PlayerType
	Name() string
	State() PlayerState
	Capabilities() Capabilities

	// Start begins asynchronous initialization. May queue the first
	// RequestMove.
	Start() error
	// Stop cleanly shuts the player down (kill subprocess, close stream).
	Stop()

	// RequestMove is called when it becomes this player's turn.
	RequestMove(pos *board.Position)
	// PendingMove returns the move the player expects the user to
	// physically execute, if any.
	PendingMove() (board.Move, bool)

	// OnPieceEvent tracks physical lift/place events against this
	// player's in-flight move.
	OnPieceEvent(eventType PieceEventType, sq board.Square, pos *board.Position)
	// OnMoveMade clears pending-move and lifted-square tracking.
	OnMoveMade(m board.Move, pos *board.Position)
	OnNewGame()
	OnTakeback(pos *board.Position)
	OnResign(c board.Color)
	OnDrawOffer()
	// OnCorrectionModeExit notifies the player that a correction detour
	// has ended; load-bearing for HandBrainPlayer's phase machine, which
	// must know when a correction detour has ended to resume its own state.
	OnCorrectionModeExit()

	SetMoveCallback(fn func(board.Move) bool)
	SetPendingMoveCallback(fn func(board.Move))
	SetStatusCallback(fn func(PlayerState))
	SetErrorCallback(fn func(string))
	SetReadyCallback(fn func())

	GetInfo() map[string]string
}

// BasePlayer implements the lift/place tracking, state machine, and
// callback plumbing shared by every concrete Player. Concrete players embed
// it and supply doRequestMove/onMoveFormed.
type BasePlayer struct {
	mu sync.Mutex

	color board.Color
	typ   PlayerType
	name  string
	state PlayerState
	caps  Capabilities

	pendingMove    board.Move
	hasPendingMove bool

	liftedSquares []board.Square

	queuedRequest *board.Position
	hasQueuedMove bool

	readyFired bool

	moveCallback        func(board.Move) bool
	pendingMoveCallback func(board.Move)
	statusCallback      func(PlayerState)
	errorCallback       func(string)
	readyCallback       func()

	// doRequestMove is invoked (outside the lock) when it is this
	// player's turn and the player is READY. Set by the concrete type's
	// constructor.
	doRequestMove func(pos *board.Position)

	// onMoveFormed is invoked when OnPieceEvent completes a move from
	// lift/place tracking. Defaults to submitting immediately (HumanPlayer
	// semantics); EnginePlayer/LichessPlayer/HandBrainPlayer override it to
	// validate against a pending move first.
	onMoveFormed func(m board.Move, pos *board.Position)
}

func newBasePlayer(typ PlayerType, name string, caps Capabilities) BasePlayer {
	return BasePlayer{
		typ:   typ,
		name:  name,
		state: StateUninitialized,
		caps:  caps,
	}
}

func (b *BasePlayer) Color() board.Color         { return b.color }
func (b *BasePlayer) SetColor(c board.Color)     { b.color = c }
func (b *BasePlayer) Type() PlayerType           { return b.typ }
func (b *BasePlayer) Name() string               { return b.name }
func (b *BasePlayer) Capabilities() Capabilities { return b.caps }

func (b *BasePlayer) State() PlayerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BasePlayer) SetMoveCallback(fn func(board.Move) bool)   { b.moveCallback = fn }
func (b *BasePlayer) SetPendingMoveCallback(fn func(board.Move)) { b.pendingMoveCallback = fn }
func (b *BasePlayer) SetStatusCallback(fn func(PlayerState))     { b.statusCallback = fn }
func (b *BasePlayer) SetErrorCallback(fn func(string))           { b.errorCallback = fn }
func (b *BasePlayer) SetReadyCallback(fn func())                 { b.readyCallback = fn }

func (b *BasePlayer) reportError(kind string) {
	if b.errorCallback != nil {
		b.errorCallback(kind)
	}
}

// setState transitions the player and, on the INITIALIZING->READY edge,
// fires the ready status callback and flushes any queued RequestMove.
func (b *BasePlayer) setState(s PlayerState) {
	b.mu.Lock()
	prev := b.state
	b.state = s
	var flushPos *board.Position
	if prev == StateInitializing && s == StateReady && b.hasQueuedMove {
		flushPos = b.queuedRequest
		b.hasQueuedMove = false
		b.queuedRequest = nil
	}
	cb := b.statusCallback
	ready := b.readyCallback
	b.mu.Unlock()

	if cb != nil {
		cb(s)
	}
	if s == StateReady && ready != nil {
		ready()
	}
	if flushPos != nil && b.doRequestMove != nil {
		b.doRequestMove(flushPos)
	}
}

// RequestMove is called when it becomes this player's turn. If the player
// has not yet reached READY, the board is copied and queued; otherwise the
// request is dispatched immediately.
func (b *BasePlayer) RequestMove(pos *board.Position) {
	b.mu.Lock()
	state := b.state
	if state == StateInitializing {
		cp := pos.Copy()
		b.queuedRequest = cp
		b.hasQueuedMove = true
		b.mu.Unlock()
		return
	}
	if state != StateReady {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if b.doRequestMove != nil {
		b.doRequestMove(pos)
	}
}

func (b *BasePlayer) PendingMove() (board.Move, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingMove, b.hasPendingMove
}

// setPendingMove records the move the player expects to be physically
// executed and fires the pending-move callback for LED guidance.
func (b *BasePlayer) setPendingMove(m board.Move) {
	b.mu.Lock()
	b.pendingMove = m
	b.hasPendingMove = true
	b.mu.Unlock()
	if b.pendingMoveCallback != nil {
		b.pendingMoveCallback(m)
	}
}

func (b *BasePlayer) clearPendingMove() {
	b.mu.Lock()
	b.hasPendingMove = false
	b.liftedSquares = nil
	b.mu.Unlock()
}

// OnMoveMade clears pending-move and lifted-square tracking. Concrete
// players may wrap this to add their own bookkeeping.
func (b *BasePlayer) OnMoveMade(m board.Move, pos *board.Position) {
	b.clearPendingMove()
}

func (b *BasePlayer) OnCorrectionModeExit() {}

// OnNewGame, OnTakeback, OnResign, OnDrawOffer default to no-ops. Concrete
// players override by defining their own same-named method, which shadows
// the promoted one.
func (b *BasePlayer) OnNewGame()                 {}
func (b *BasePlayer) OnTakeback(*board.Position) {}
func (b *BasePlayer) OnResign(board.Color)       {}
func (b *BasePlayer) OnDrawOffer()               {}

// GetInfo returns the fields common to every player type. Concrete players
// override to add their own (engine depth/score, Lichess game ID, ...).
func (b *BasePlayer) GetInfo() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]string{
		"type":  b.typ.String(),
		"name":  b.name,
		"color": b.color.String(),
		"state": b.state.String(),
	}
}

// OnPieceEvent implements the shared lift/place tracking: tracks up to two
// lifted squares (to support captures — the capturing piece lands on the
// captured piece's square, so the *other* lifted square is the true
// source), and on PLACE forms a Move and dispatches it to onMoveFormed.
func (b *BasePlayer) OnPieceEvent(eventType PieceEventType, sq board.Square, pos *board.Position) {
	if eventType == EventLift {
		b.mu.Lock()
		if len(b.liftedSquares) < 2 {
			b.liftedSquares = append(b.liftedSquares, sq)
		}
		b.mu.Unlock()
		return
	}

	// PLACE
	b.mu.Lock()
	n := len(b.liftedSquares)
	if n == 0 {
		b.mu.Unlock()
		b.reportError("place_without_lift")
		return
	}

	if n == 1 && b.liftedSquares[0] == sq {
		// Piece placed back on the only lifted square.
		b.liftedSquares = nil
		b.mu.Unlock()
		b.reportError("piece_returned")
		return
	}

	var source board.Square
	if n == 2 {
		// Capture: the other lifted square is the source.
		if b.liftedSquares[0] == sq {
			source = b.liftedSquares[1]
		} else {
			source = b.liftedSquares[0]
		}
	} else {
		source = b.liftedSquares[0]
	}
	b.liftedSquares = nil
	formedFn := b.onMoveFormed
	b.mu.Unlock()

	m := board.NewMove(source, sq)
	if formedFn != nil {
		formedFn(m, pos)
	} else {
		b.submitMove(m)
	}
}

// submitMove is the default onMoveFormed: submit unconditionally (HumanPlayer).
func (b *BasePlayer) submitMove(m board.Move) bool {
	if b.moveCallback == nil {
		return false
	}
	return b.moveCallback(m)
}
