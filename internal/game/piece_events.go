package game

import "github.com/centaurcore/gamecore/internal/board"

// handlePieceLift tracks the GameManager-level physical concerns that sit
// alongside (not instead of) the Player's own lift/place tracking: rook-
// first castling detection, late-castling arming, and the king-lift-resign
// timer. Ported from piece_events.py's handle_piece_lift.
func (gm *GameManager) handlePieceLift(field board.Square, pieceColor board.Color, hasPieceColor bool) {
	// Late-castling attempt: a rook was placed on its castling destination
	// earlier, and the king of the corresponding color is now lifted from
	// its home square.
	if gm.MoveState.CastlingRookPlaced && !gm.MoveState.LateCastlingInProgress {
		if kingFrom, kingTo, ok := GetCastlingKingMove(gm.MoveState.CastlingRookSource); ok && field == kingFrom {
			gm.MoveState.LateCastlingInProgress = true
			gm.MoveState.HasSource = true
			gm.MoveState.SourceSquare = kingFrom
			gm.MoveState.SourcePieceColor = pieceColor
			gm.MoveState.LegalDestinationSquares = map[board.Square]bool{kingTo: true}
			gm.handleKingLiftResign(field, pieceColor, hasPieceColor)
			return
		}
	}

	// A lift of a different piece abandons an in-flight rook-castling
	// tracking sequence that has not yet reached late-castling.
	if gm.MoveState.HasCastlingRookSrc && !gm.MoveState.LateCastlingInProgress && field != gm.MoveState.CastlingRookSource {
		gm.MoveState.HasCastlingRookSrc = false
		gm.MoveState.CastlingRookPlaced = false
	}

	// Rook lifted from a castling-home square while castling is currently
	// legal: begin tracking a possible rook-first castling sequence.
	if !gm.MoveState.HasCastlingRookSrc && IsRookCastlingSquare(field) {
		if kingFrom, kingTo, ok := GetCastlingKingMove(field); ok {
			castlingMove := board.NewCastling(kingFrom, kingTo)
			if gm.Board.IsLegal(castlingMove) {
				gm.MoveState.CastlingRookSource = field
				gm.MoveState.HasCastlingRookSrc = true
				gm.MoveState.CastlingRookPlaced = false
			}
		}
	}

	gm.handleKingLiftResign(field, pieceColor, hasPieceColor)
}

// handlePieceEventWithoutPlayer handles a PLACE when no PlayerManager is
// wired: reset on the starting position, turn LEDs off if the physical
// board already matches the logical one, otherwise ignore.
func (gm *GameManager) handlePieceEventWithoutPlayer(field board.Square) {
	current, ok := gm.boardDriver.GetChessState()
	if !ok {
		return
	}
	if isStartingPositionState(current) {
		gm.resetGame()
		return
	}
	if ChessStatesEqual(current, gm.chessBoardToState(gm.Board.Position())) {
		gm.led2().Off()
	}
}

// isStartingPositionState reports whether state matches a standard game's
// initial piece-presence projection (ranks 1,2,7,8 occupied, ranks 3-6
// empty), independent of which exact pieces sit where — a coarse enough
// check since any board with exactly those 32 squares filled is read as
// "set up for a new game".
func isStartingPositionState(state [board.PresenceSize]byte) bool {
	for sq := board.Square(0); sq < 64; sq++ {
		rank := sq.Rank()
		occupied := state[sq] == 1
		wantOccupied := rank == 0 || rank == 1 || rank == 6 || rank == 7
		if occupied != wantOccupied {
			return false
		}
	}
	return true
}

// handleKingLiftResign arms a 3-second resign timer if the lifted piece is
// a king belonging to a color whose player allows board-initiated
// resignation.
func (gm *GameManager) handleKingLiftResign(field board.Square, pieceColor board.Color, hasPieceColor bool) {
	if !hasPieceColor {
		return
	}
	if gm.Board.Position().PieceAt(field).Type() != board.King {
		return
	}
	pm := gm.playerManagerRef()
	if pm == nil || !pm.GetPlayer(pieceColor).Capabilities().CanResign {
		return
	}

	gm.MoveState.HasKingLifted = true
	gm.MoveState.KingLiftedSquare = field
	gm.MoveState.KingLiftedColor = pieceColor
	gm.MoveState.ArmKingLiftTimer(kingLiftResignDelay, func() {
		gm.enqueue(func() {
			gm.kingLiftResignMenuActive = true
			if gm.onKingLiftResign != nil {
				gm.onKingLiftResign(pieceColor)
			}
		})
	})
}

// handlePiecePlace cancels king-lift tracking, completes an in-flight late
// castling, tracks rook-first castling, and otherwise lets
// PlayerManager.OnPieceEvent (called by the caller, earlier) own ordinary
// move formation. Ported from piece_events.py's handle_piece_place.
//
// Returns true if it consumed the event. The caller has already forwarded
// the event to the player manager and ignores the result.
func (gm *GameManager) handlePiecePlace(field board.Square) bool {
	if gm.MoveState.HasKingLifted {
		gm.MoveState.CancelKingLiftTimer()
		if gm.kingLiftResignMenuActive {
			gm.kingLiftResignMenuActive = false
			if gm.onKingLiftResignCancel != nil {
				gm.onKingLiftResignCancel()
			}
		}
		gm.MoveState.HasKingLifted = false
		gm.MoveState.KingLiftedSquare = board.NoSquare
	}

	// Late castling in progress: placing the king on the narrowed
	// destination completes it; anything else is a wrong placement.
	if gm.MoveState.LateCastlingInProgress {
		if gm.MoveState.LegalDestinationSquares[field] {
			gm.executeLateCastlingFromMove(gm.MoveState.CastlingRookSource, field)
		} else {
			gm.beep(SoundWrongMove)
			gm.enterCorrectionMode()
			gm.provideCorrectionGuidance()
		}
		return true
	}

	// Rook-first castling tracking: placement on the castling destination
	// is a normal legal rook move that stays tracked for a possible late
	// castling; placement anywhere else (including back on the source)
	// ends tracking.
	if gm.MoveState.HasCastlingRookSrc {
		if IsValidRookCastlingDestination(gm.MoveState.CastlingRookSource, field) {
			gm.MoveState.CastlingRookPlaced = true
		} else {
			gm.MoveState.HasCastlingRookSrc = false
			gm.MoveState.CastlingRookPlaced = false
		}
	}

	// Forced-move missed-lift recovery already ran earlier in
	// processFieldEvent, before this was reached.

	return false
}

// tryForcedMoveOccupancyRecovery simulates applying the forced UCI move
// and, if the resulting full occupancy matches the live physical board,
// accepts the recovery outright. Returns true if it consumed the PLACE
// event.
func (gm *GameManager) tryForcedMoveOccupancyRecovery(triggerField board.Square) bool {
	uci := gm.MoveState.ComputerMoveUCI
	pos := gm.Board.Position()

	m, err := board.ParseMove(uci, pos)
	if err != nil || !gm.Board.IsLegal(m) {
		return false
	}

	allowedTriggers := map[board.Square]bool{m.To(): true}
	switch uci {
	case "e1g1":
		allowedTriggers[board.G1] = true
		allowedTriggers[board.F1] = true
	case "e1c1":
		allowedTriggers[board.C1] = true
		allowedTriggers[board.D1] = true
	case "e8g8":
		allowedTriggers[board.G8] = true
		allowedTriggers[board.F8] = true
	case "e8c8":
		allowedTriggers[board.C8] = true
		allowedTriggers[board.D8] = true
	}
	if !allowedTriggers[triggerField] {
		return false
	}

	sim := pos.Copy()
	sim.MakeMove(m)
	expected := sim.PresenceState()

	current, ok := gm.boardDriver.GetChessState()
	if !ok || !ChessStatesEqual(current, expected) {
		return false
	}

	gm.executeCompleteMove(m)
	return true
}
