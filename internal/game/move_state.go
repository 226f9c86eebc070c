package game

import (
	"sync"
	"time"

	"github.com/centaurcore/gamecore/internal/board"
)

// rookCastlingHome square -> (destination square after castling, king's move).
type castlingRoute struct {
	rookDest board.Square
	kingFrom board.Square
	kingTo   board.Square
}

var castlingRoutes = map[board.Square]castlingRoute{
	board.A1: {rookDest: board.D1, kingFrom: board.E1, kingTo: board.C1},
	board.H1: {rookDest: board.F1, kingFrom: board.E1, kingTo: board.G1},
	board.A8: {rookDest: board.D8, kingFrom: board.E8, kingTo: board.C8},
	board.H8: {rookDest: board.F8, kingFrom: board.E8, kingTo: board.G8},
}

// minUCIMoveLength is the shortest a "ffttP?" UCI move string can be.
const minUCIMoveLength = 4

// MoveState tracks an in-progress physical interaction: what has been
// lifted, in-flight castling sequences, and the king-lift-resign timer. It
// is owned by GameManager and mutated only from the game thread.
type MoveState struct {
	mu sync.Mutex

	SourceSquare         board.Square
	OpponentSourceSquare board.Square
	SourcePieceColor     board.Color
	HasSource            bool
	HasOpponentSource    bool

	// LegalDestinationSquares are the squares the currently-lifted piece may
	// be placed on. Always includes SourceSquare so "replace in place" is
	// legal.
	LegalDestinationSquares map[board.Square]bool

	ComputerMoveUCI string
	IsForcedMove    bool

	// Castling 3-flag state machine.
	CastlingRookSource     board.Square
	HasCastlingRookSrc     bool
	CastlingRookPlaced     bool
	LateCastlingInProgress bool

	KingLiftedSquare board.Square
	KingLiftedColor  board.Color
	HasKingLifted    bool
	kingLiftTimer    *time.Timer

	// PendingMoveSourceLifted marks that the correct source of a pending
	// engine/Lichess move has already been lifted, so subsequent bumps on
	// other squares do not trigger the wrong-piece-lifted guard.
	PendingMoveSourceLifted bool

	// capture-square-event tracking: one-bit flag per pending-capture
	// target square, gating the "board matches expected post-move state"
	// shortcut.
	capturedSquareEvents map[board.Square]bool

	// OnReset is invoked whenever Reset clears the broadcast pending move.
	// Optional.
	OnReset func()
}

// NewMoveState returns a MoveState in its initial, empty configuration.
func NewMoveState() *MoveState {
	ms := &MoveState{}
	ms.resetLocked()
	return ms
}

// Reset fully clears all in-progress interaction state, including castling
// tracking and the king-lift timer. Idempotent; always clears the attached
// broadcast pending move.
func (ms *MoveState) Reset() {
	ms.mu.Lock()
	ms.resetLocked()
	cb := ms.OnReset
	ms.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (ms *MoveState) resetLocked() {
	ms.cancelKingLiftTimerLocked()
	ms.HasSource = false
	ms.HasOpponentSource = false
	ms.LegalDestinationSquares = nil
	ms.ComputerMoveUCI = ""
	ms.IsForcedMove = false
	ms.HasCastlingRookSrc = false
	ms.CastlingRookPlaced = false
	ms.LateCastlingInProgress = false
	ms.HasKingLifted = false
	ms.PendingMoveSourceLifted = false
	ms.capturedSquareEvents = make(map[board.Square]bool)
}

// ResetPartial clears only source/destination/opponent-source tracking,
// preserving castling flags and any forced move. Used by
// GameManager.exitCorrectionMode, which must not discard a rook-first
// castling sequence still in flight (original_source/.../game_manager.py
// `_exit_correction_mode`).
func (ms *MoveState) ResetPartial() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.HasSource = false
	ms.HasOpponentSource = false
	ms.LegalDestinationSquares = nil
}

// SetComputerMove records a forced move the user is being guided to
// execute. Validates minimum UCI length only; legality is the caller's
// responsibility.
func (ms *MoveState) SetComputerMove(uci string, forced bool) bool {
	if len(uci) < minUCIMoveLength {
		return false
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.ComputerMoveUCI = uci
	ms.IsForcedMove = forced
	return true
}

func (ms *MoveState) ClearComputerMove() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.ComputerMoveUCI = ""
	ms.IsForcedMove = false
}

// IsRookCastlingSquare reports whether sq is one of the four rook home
// squares that participate in castling.
func IsRookCastlingSquare(sq board.Square) bool {
	_, ok := castlingRoutes[sq]
	return ok
}

// IsValidRookCastlingDestination reports whether placing a rook lifted from
// src onto dst matches that rook's castling destination.
func IsValidRookCastlingDestination(src, dst board.Square) bool {
	route, ok := castlingRoutes[src]
	return ok && route.rookDest == dst
}

// GetCastlingKingMove returns the king's from/to squares for the castling
// move associated with a rook home square.
func GetCastlingKingMove(rookSrc board.Square) (from, to board.Square, ok bool) {
	route, ok := castlingRoutes[rookSrc]
	if !ok {
		return board.NoSquare, board.NoSquare, false
	}
	return route.kingFrom, route.kingTo, true
}

// ArmKingLiftTimer schedules fn to run after d unless cancelled by a
// subsequent CancelKingLiftTimer call. Idempotent: cancels any previously
// armed timer first.
func (ms *MoveState) ArmKingLiftTimer(d time.Duration, fn func()) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cancelKingLiftTimerLocked()
	ms.kingLiftTimer = time.AfterFunc(d, fn)
}

// CancelKingLiftTimer cancels any armed king-lift-resign timer. Idempotent.
func (ms *MoveState) CancelKingLiftTimer() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cancelKingLiftTimerLocked()
}

func (ms *MoveState) cancelKingLiftTimerLocked() {
	if ms.kingLiftTimer != nil {
		ms.kingLiftTimer.Stop()
		ms.kingLiftTimer = nil
	}
}

// RecordCaptureSquareEvent remembers that an event (LIFT or PLACE) was
// observed on sq, a pending capture's target square.
func (ms *MoveState) RecordCaptureSquareEvent(sq board.Square) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.capturedSquareEvents == nil {
		ms.capturedSquareEvents = make(map[board.Square]bool)
	}
	ms.capturedSquareEvents[sq] = true
}

// HasSeenCaptureSquareEvent reports whether RecordCaptureSquareEvent(sq) was
// called since the last Reset.
func (ms *MoveState) HasSeenCaptureSquareEvent(sq board.Square) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.capturedSquareEvents[sq]
}
