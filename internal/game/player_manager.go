package game

import (
	"log"

	"github.com/centaurcore/gamecore/internal/board"
)

// PlayerManager owns exactly two Players, one per color, and routes board
// turns, piece events, and move-made notifications to whichever currently
// applies.
type PlayerManager struct {
	white, black Player

	moveCallback        func(board.Move) bool
	pendingMoveCallback func(board.Move)
	statusCallback      func(PlayerState)
	errorCallback       func(string)
	readyCallback       func()
	readyFired          bool
}

// NewPlayerManager wires white and black to WHITE/BLACK colors and
// registers the internal ready-aggregation callback.
func NewPlayerManager(white, black Player) *PlayerManager {
	white.SetColor(board.White)
	black.SetColor(board.Black)

	pm := &PlayerManager{white: white, black: black}
	white.SetReadyCallback(pm.onPlayerReady)
	black.SetReadyCallback(pm.onPlayerReady)

	log.Printf("[PlayerManager] created: white=%s (%s) black=%s (%s)",
		white.Name(), white.Type(), black.Name(), black.Type())
	return pm
}

func (pm *PlayerManager) onPlayerReady() {
	if pm.readyFired {
		return
	}
	if pm.IsReady() {
		pm.readyFired = true
		if pm.readyCallback != nil {
			pm.readyCallback()
		}
	}
}

func (pm *PlayerManager) SetMoveCallback(fn func(board.Move) bool) {
	pm.moveCallback = fn
	pm.white.SetMoveCallback(fn)
	pm.black.SetMoveCallback(fn)
}

func (pm *PlayerManager) SetPendingMoveCallback(fn func(board.Move)) {
	pm.pendingMoveCallback = fn
	pm.white.SetPendingMoveCallback(fn)
	pm.black.SetPendingMoveCallback(fn)
}

func (pm *PlayerManager) SetStatusCallback(fn func(PlayerState)) {
	pm.statusCallback = fn
	pm.white.SetStatusCallback(fn)
	pm.black.SetStatusCallback(fn)
}

func (pm *PlayerManager) SetErrorCallback(fn func(string)) {
	pm.errorCallback = fn
	pm.white.SetErrorCallback(fn)
	pm.black.SetErrorCallback(fn)
}

func (pm *PlayerManager) SetReadyCallback(fn func()) { pm.readyCallback = fn }

// Start starts both players in parallel and reports whether both
// initializations kicked off without an immediate error.
func (pm *PlayerManager) Start() bool {
	whiteErr := pm.white.Start()
	blackErr := pm.black.Start()
	if whiteErr != nil {
		log.Printf("[PlayerManager] white player failed to start: %v", whiteErr)
	}
	if blackErr != nil {
		log.Printf("[PlayerManager] black player failed to start: %v", blackErr)
	}
	return whiteErr == nil && blackErr == nil
}

func (pm *PlayerManager) Stop() {
	pm.white.Stop()
	pm.black.Stop()
}

func (pm *PlayerManager) OnNewGame() {
	pm.readyFired = false
	pm.white.OnNewGame()
	pm.black.OnNewGame()
}

func (pm *PlayerManager) OnTakeback(pos *board.Position) {
	pm.white.OnTakeback(pos)
	pm.black.OnTakeback(pos)
}

// GetPlayer returns the player for the given color.
func (pm *PlayerManager) GetPlayer(c board.Color) Player {
	if c == board.White {
		return pm.white
	}
	return pm.black
}

// CurrentPlayer returns the player whose turn it is in pos.
func (pm *PlayerManager) CurrentPlayer(pos *board.Position) Player {
	return pm.GetPlayer(pos.SideToMove)
}

// CurrentPendingMove returns the current player's pending move, if any.
func (pm *PlayerManager) CurrentPendingMove(pos *board.Position) (board.Move, bool) {
	return pm.CurrentPlayer(pos).PendingMove()
}

// RequestMove asks the current player to move, unless it is already
// THINKING.
func (pm *PlayerManager) RequestMove(pos *board.Position) {
	player := pm.CurrentPlayer(pos)
	if player.State() == StateThinking {
		return
	}
	player.RequestMove(pos)
}

// OnPieceEvent routes a lift/place event to the current player.
func (pm *PlayerManager) OnPieceEvent(eventType PieceEventType, sq board.Square, pos *board.Position) {
	pm.CurrentPlayer(pos).OnPieceEvent(eventType, sq, pos)
}

// OnMoveMade notifies both players that a move was made.
func (pm *PlayerManager) OnMoveMade(m board.Move, pos *board.Position) {
	pm.white.OnMoveMade(m, pos)
	pm.black.OnMoveMade(m, pos)
}

func (pm *PlayerManager) IsTwoHuman() bool {
	return pm.white.Type() == PlayerHuman && pm.black.Type() == PlayerHuman
}

func (pm *PlayerManager) HasEngine() bool {
	return pm.white.Type() == PlayerEngine || pm.black.Type() == PlayerEngine
}

func (pm *PlayerManager) HasLichess() bool {
	return pm.white.Type() == PlayerLichess || pm.black.Type() == PlayerLichess
}

func (pm *PlayerManager) IsReady() bool {
	return pm.white.State() == StateReady && pm.black.State() == StateReady
}

func (pm *PlayerManager) SupportsTakeback() bool {
	return pm.white.Capabilities().SupportsTakeback && pm.black.Capabilities().SupportsTakeback
}

func (pm *PlayerManager) GetInfo() map[string]map[string]string {
	return map[string]map[string]string{
		"white": pm.white.GetInfo(),
		"black": pm.black.GetInfo(),
	}
}
