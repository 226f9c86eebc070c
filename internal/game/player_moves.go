package game

import "github.com/centaurcore/gamecore/internal/board"

// onPlayerMove is wired as PlayerManager's move callback, fired once a
// player has submitted a move. It returns whether the move was accepted, so
// Engine/Lichess players know whether to forward it to their own backend.
func (gm *GameManager) onPlayerMove(m board.Move) bool {
	if gm.Board.IsGameOver() {
		gm.beep(SoundWrongMove)
		gm.led2().Off()
		gm.MoveState.Reset()
		return false
	}

	if m.From() == m.To() {
		recovered, ok := gm.completeDestinationOnlyMove(m.To())
		if !ok {
			return false
		}
		m = recovered
	}

	m = gm.checkAndHandlePromotion(m)

	if gm.Board.IsLegal(m) {
		return gm.executeCompleteMove(m)
	}

	if gm.detectLateCastling(m) {
		gm.executeLateCastlingFromMove(lateCastlingRookSourceFor(m), m.To())
		return true
	}

	gm.beep(SoundWrongMove)
	gm.enterCorrectionMode()
	gm.provideCorrectionGuidance()
	return false
}

// completeDestinationOnlyMove reconstructs a missed-LIFT move's source
// square: the unique square that is expected-occupied (per the logical
// board) but physically empty, excluding the destination itself. If more
// than one candidate qualifies, narrows to chess-legal (src, dest[, promo])
// candidates; if that still doesn't collapse to exactly one, refuses.
func (gm *GameManager) completeDestinationOnlyMove(dest board.Square) (board.Move, bool) {
	current, ok := gm.boardDriver.GetChessState()
	if !ok {
		return board.NoMove, false
	}
	expected := gm.chessBoardToState(gm.Board.Position())

	var candidates []board.Square
	for sq := board.Square(0); sq < board.PresenceSize; sq++ {
		if sq == dest {
			continue
		}
		if expected[sq] == 1 && current[sq] == 0 {
			candidates = append(candidates, sq)
		}
	}

	if len(candidates) == 1 {
		return gm.resolveMoveTo(candidates[0], dest)
	}
	if len(candidates) == 0 {
		return board.NoMove, false
	}

	var legal []board.Move
	for _, src := range candidates {
		if m, ok := gm.resolveMoveTo(src, dest); ok {
			legal = append(legal, m)
		}
	}
	if len(legal) != 1 {
		return board.NoMove, false
	}
	return legal[0], true
}

// resolveMoveTo returns the unique legal move from src to dest in the
// current position (accounting for promotion, which the caller attaches
// separately if still missing).
func (gm *GameManager) resolveMoveTo(src, dest board.Square) (board.Move, bool) {
	for _, m := range gm.Board.LegalMoves() {
		if m.From() == src && m.To() == dest {
			return m, true
		}
	}
	return board.NewMove(src, dest), false
}

// checkAndHandlePromotion attaches a promotion piece (asking the UI, or
// defaulting to queen) if m is a pawn move onto the promotion rank without
// one already set.
func (gm *GameManager) checkAndHandlePromotion(m board.Move) board.Move {
	pos := gm.Board.Position()
	piece := pos.PieceAt(m.From())
	if piece.Type() != board.Pawn || m.IsPromotion() {
		return m
	}
	destRank := m.To().Rank()
	if destRank != 0 && destRank != 7 {
		return m
	}
	promo := gm.handlePromotion(piece.Color() == board.White)
	return board.NewPromotion(m.From(), m.To(), promo)
}

// lateCastlingRookSourceFor maps a late-castling king move to the rook home
// square that must already be tracked as castling_rook_placed.
func lateCastlingRookSourceFor(m board.Move) board.Square {
	switch {
	case m.From() == board.E1 && m.To() == board.G1:
		return board.H1
	case m.From() == board.E1 && m.To() == board.C1:
		return board.A1
	case m.From() == board.E8 && m.To() == board.G8:
		return board.H8
	case m.From() == board.E8 && m.To() == board.C8:
		return board.A8
	default:
		return board.NoSquare
	}
}

// detectLateCastling reports whether m is one of the four castling king
// moves, the acting player supports late castling, and a prior regular
// rook move from the corresponding rook square was tracked as
// castling_rook_placed.
func (gm *GameManager) detectLateCastling(m board.Move) bool {
	rookSrc := lateCastlingRookSourceFor(m)
	if rookSrc == board.NoSquare {
		return false
	}
	if !gm.MoveState.HasCastlingRookSrc || gm.MoveState.CastlingRookSource != rookSrc || !gm.MoveState.CastlingRookPlaced {
		return false
	}
	pm := gm.playerManagerRef()
	if pm == nil || !pm.GetPlayer(gm.Board.Turn()).Capabilities().SupportsLateCastling {
		return false
	}
	return true
}

// executeLateCastlingFromMove undoes the tracked rook move (and, if the
// opponent already replied, that reply too) from both the logical board
// and persistence, verifies castling is now legal, pushes it, and
// re-triggers the takeback callback so an engine opponent can recompute
// its reply.
func (gm *GameManager) executeLateCastlingFromMove(rookSource, kingDest board.Square) {
	kingFrom, kingTo, ok := GetCastlingKingMove(rookSource)
	if !ok || kingTo != kingDest {
		gm.beep(SoundWrongMove)
		gm.enterCorrectionMode()
		gm.provideCorrectionGuidance()
		return
	}

	undone := 0
	for undone < 2 && gm.Board.MoveCount() > 0 {
		_, popped := gm.Board.Pop()
		if !popped {
			break
		}
		undone++
		if id, has := gm.currentGameDBID(); gm.saveToDatabase && gm.persistence != nil && has {
			_ = gm.persistence.DeleteLastMove(id)
		}
		if gm.Board.Turn() == lateCastlingColorFor(rookSource) {
			break
		}
	}

	castlingMove := board.NewCastling(kingFrom, kingTo)
	if !gm.Board.IsLegal(castlingMove) {
		gm.beep(SoundWrongMove)
		gm.enterCorrectionMode()
		gm.provideCorrectionGuidance()
		return
	}

	gm.MoveState.HasCastlingRookSrc = false
	gm.MoveState.CastlingRookPlaced = false
	gm.MoveState.LateCastlingInProgress = false

	if gm.takebackCallback != nil {
		gm.takebackCallback()
	}
	if pm := gm.playerManagerRef(); pm != nil {
		pm.OnTakeback(gm.Board.Position())
	}

	gm.executeCompleteMove(castlingMove)
}

func lateCastlingColorFor(rookSource board.Square) board.Color {
	if rookSource == board.A1 || rookSource == board.H1 {
		return board.White
	}
	return board.Black
}

// executeCompleteMove is the single authoritative move-application path:
// push to the logical board, give synchronous physical feedback, determine
// outcome, reset move state, switch turn (or finish the game), and enqueue
// post-move side effects.
func (gm *GameManager) executeCompleteMove(m board.Move) bool {
	isFirstMove := gm.Board.MoveCount() == 0

	if err := gm.Board.Push(m); err != nil {
		gm.beep(SoundWrongMove)
		gm.led2().Off()
		gm.MoveState.Reset()
		return false
	}

	gm.led2().Off()
	gm.beep(SoundGeneral)
	gm.led2().SingleFast(m.To(), 1)

	if pm := gm.playerManagerRef(); pm != nil {
		pm.OnMoveMade(m, gm.Board.Position())
	}

	outcome, gameOver := gm.Board.Outcome()

	// ResetPartial deliberately leaves castling-rook tracking untouched: a
	// rook-first castling sequence may still be mid-flight (the rook move
	// just pushed here *is* that tracked move).
	gm.MoveState.ResetPartial()
	gm.MoveState.ClearComputerMove()
	gm.MoveState.PendingMoveSourceLifted = false

	if m.IsCastling() {
		gm.MoveState.HasCastlingRookSrc = false
		gm.MoveState.CastlingRookPlaced = false
		gm.MoveState.LateCastlingInProgress = false
	}

	if !gameOver {
		gm.switchTurnWithEvent()
	}

	uci := m.String()
	gm.enqueuePostMoveTasks(uci, isFirstMove)

	if gameOver {
		gm.updateGameResult(outcome.Result, outcome.Termination)
	}

	return true
}
