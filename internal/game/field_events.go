package game

import "github.com/centaurcore/gamecore/internal/board"

// processFieldEvent is the top-level physical-event dispatcher. It is only
// ever invoked on the game goroutine, via ReceiveField's enqueue.
func (gm *GameManager) processFieldEvent(eventType PieceEventType, field board.Square, seconds float64) {
	isLift := eventType == EventLift

	var pieceColor board.Color
	hasPieceColor := false
	if isLift {
		pieceColor, hasPieceColor = gm.colorAt(field)
		if gm.eventCallback != nil {
			gm.eventCallback(EventLiftPiece, field, seconds, "")
		}
	} else {
		if gm.MoveState.HasSource {
			pieceColor, hasPieceColor = gm.MoveState.SourcePieceColor, true
		} else {
			pieceColor, hasPieceColor = gm.colorAt(field)
		}
		if gm.eventCallback != nil {
			gm.eventCallback(EventPlacePiece, field, seconds, "")
		}
	}

	pm := gm.playerManagerRef()
	var pendingMove board.Move
	hasPendingMove := false
	isPendingCapture := false
	var pendingCaptureSquare board.Square
	hasPendingCaptureSquare := false
	if pm != nil {
		pendingMove, hasPendingMove = pm.CurrentPendingMove(gm.Board.Position())
		if hasPendingMove {
			isPendingCapture = gm.Board.IsCapture(pendingMove)
			if isPendingCapture {
				pendingCaptureSquare = pendingMove.To()
				hasPendingCaptureSquare = true
			}
		}
	}

	// Resign-menu override: kings-in-center or king-lift-resign menu active.
	if gm.kingsInCenterMenuActive || gm.kingLiftResignMenuActive {
		gm.handleResignMenuOverride(isLift)
		return
	}

	// Correction-mode override.
	if gm.Correction.Active {
		if !isLift && hasPendingMove {
			captureOK := !isPendingCapture || (hasPendingCaptureSquare && gm.MoveState.HasSeenCaptureSquareEvent(pendingCaptureSquare))
			if captureOK && gm.physicalMatchesExpectedAfter(pendingMove, isPendingCapture, pendingCaptureSquare, hasPendingCaptureSquare) {
				gm.executeCompleteMove(pendingMove)
				return
			}
		}
		gm.handleFieldEventInCorrectionMode(eventType, field)
		return
	}

	// Suppress exactly one stale PLACE that arrives immediately after a
	// correction-mode exit (ConsumeJustExited is one-shot: this also clears
	// it for every later event, forced-move or not). For an ordinary move
	// any such PLACE is stale and ignored outright; for a pending forced
	// move, only a PLACE away from its source square is stale — a PLACE on
	// the source square is the real move continuing and falls through.
	if !isLift && gm.Correction.ConsumeJustExited() {
		suppress := true
		if gm.MoveState.IsForcedMove && gm.MoveState.ComputerMoveUCI != "" {
			if m, err := board.ParseMove(gm.MoveState.ComputerMoveUCI, gm.Board.Position()); err == nil {
				suppress = field != m.From()
			}
		}
		if suppress {
			return
		}
	}

	// No PlayerManager wired: handle directly.
	if pm == nil {
		if !isLift {
			gm.handlePieceEventWithoutPlayer(field)
		}
		return
	}

	// Capture-square-event recording + board-state shortcut.
	if hasPendingMove {
		if isPendingCapture && field == pendingCaptureSquare {
			gm.MoveState.RecordCaptureSquareEvent(pendingCaptureSquare)
		}
		if !isLift {
			canUseShortcut := !isPendingCapture || gm.MoveState.HasSeenCaptureSquareEvent(pendingCaptureSquare)
			if canUseShortcut && gm.physicalMatchesExpectedAfter(pendingMove, isPendingCapture, pendingCaptureSquare, hasPendingCaptureSquare) {
				gm.executeCompleteMove(pendingMove)
				return
			}
		}
	}

	// Forced-move missed-lift recovery: a PLACE that arrives with no prior
	// LIFT recorded against the forced move at all. Must run before
	// forwarding to the player manager, which would otherwise see zero
	// lifted squares and report place_without_lift.
	if !isLift && gm.MoveState.IsForcedMove && gm.MoveState.ComputerMoveUCI != "" && !gm.MoveState.PendingMoveSourceLifted {
		if gm.tryForcedMoveOccupancyRecovery(field) {
			return
		}
	}

	pendingMoveInProgress := gm.MoveState.PendingMoveSourceLifted &&
		(!isPendingCapture || (hasPendingCaptureSquare && gm.MoveState.HasSeenCaptureSquareEvent(pendingCaptureSquare)))

	// Wrong-piece-lifted guard for forced moves.
	if isLift && hasPendingMove && hasPieceColor && !pendingMoveInProgress {
		isValidLift := field == pendingMove.From() || (isPendingCapture && field == pendingMove.To())
		if isValidLift && field == pendingMove.From() {
			gm.MoveState.PendingMoveSourceLifted = true
		}
		if !isValidLift {
			gm.beep(SoundWrongMove)
			gm.enterCorrectionMode()
			gm.provideCorrectionGuidance()
			return
		}
	}

	// No-legal-move guard.
	if isLift && hasPieceColor {
		allowBumps := false
		if hasPendingMove {
			if isPendingCapture && hasPendingCaptureSquare && field == pendingCaptureSquare {
				allowBumps = true
			} else {
				allowBumps = gm.MoveState.PendingMoveSourceLifted &&
					(!isPendingCapture || (hasPendingCaptureSquare && gm.MoveState.HasSeenCaptureSquareEvent(pendingCaptureSquare)))
			}
		}
		if !allowBumps && !gm.hasAnyLegalMoveFrom(field) {
			gm.beep(SoundWrongMove)
			gm.enterCorrectionMode()
			gm.provideCorrectionGuidance()
			return
		}
	}

	// Forward to the player manager: this drives the Player's own
	// lift/place tracking and, on a completed placement, onPlayerMove via
	// its move callback.
	pm.OnPieceEvent(eventType, field, gm.Board.Position())

	if isLift {
		gm.handlePieceLift(field, pieceColor, hasPieceColor)
		return
	}

	gm.handlePiecePlace(field)
}

func (gm *GameManager) colorAt(sq board.Square) (board.Color, bool) {
	p := gm.Board.Position().PieceAt(sq)
	if p == board.NoPiece {
		return board.NoColor, false
	}
	return p.Color(), true
}

func (gm *GameManager) hasAnyLegalMoveFrom(sq board.Square) bool {
	for _, m := range gm.Board.LegalMoves() {
		if m.From() == sq {
			return true
		}
	}
	return false
}

// physicalMatchesExpectedAfter reports whether the live physical board
// equals the position that would result from pushing candidate, gated for
// captures on having seen an event on the capture square.
func (gm *GameManager) physicalMatchesExpectedAfter(candidate board.Move, isCapture bool, captureSquare board.Square, hasCaptureSquare bool) bool {
	if isCapture {
		if !hasCaptureSquare || !gm.MoveState.HasSeenCaptureSquareEvent(captureSquare) {
			return false
		}
	}
	sim := gm.Board.Position().Copy()
	sim.MakeMove(candidate)
	expected := sim.PresenceState()
	current, ok := gm.boardDriver.GetChessState()
	return ok && ChessStatesEqual(current, expected)
}

// handleResignMenuOverride implements field-event-flow step 5: if the
// physical board has already been restored, cancel whichever menu is
// active; otherwise a LIFT cancels the menu and enters correction mode,
// while a PLACE is ignored outright.
func (gm *GameManager) handleResignMenuOverride(isLift bool) {
	current, ok := gm.boardDriver.GetChessState()
	expected := gm.chessBoardToState(gm.Board.Position())

	if ok && ChessStatesEqual(current, expected) {
		gm.cancelResignMenus()
		return
	}

	if !isLift {
		return
	}

	gm.cancelResignMenus()
	gm.enterCorrectionMode()
	if ok {
		gm.provideCorrectionGuidance()
	}
}

func (gm *GameManager) cancelResignMenus() {
	if gm.kingsInCenterMenuActive {
		gm.kingsInCenterMenuActive = false
		if gm.onKingsInCenterCancel != nil {
			gm.onKingsInCenterCancel()
		}
	}
	if gm.kingLiftResignMenuActive {
		gm.kingLiftResignMenuActive = false
		gm.MoveState.CancelKingLiftTimer()
		gm.MoveState.HasKingLifted = false
		if gm.onKingLiftResignCancel != nil {
			gm.onKingLiftResignCancel()
		}
	}
}

// handleFieldEventInCorrectionMode processes a LIFT/PLACE while correction
// mode is active: any event simply refreshes guidance toward the (possibly
// advanced) logical position; once the physical board matches it, exit
// correction mode.
func (gm *GameManager) handleFieldEventInCorrectionMode(eventType PieceEventType, field board.Square) {
	gm.Correction.ClearExitFlag()

	current, ok := gm.boardDriver.GetChessState()
	if !ok {
		return
	}
	expected := gm.chessBoardToState(gm.Board.Position())
	if ChessStatesEqual(current, expected) {
		gm.exitCorrectionMode()
		return
	}
	gm.provideCorrectionGuidance()
}
