package game

// enqueuePostMoveTasks submits the database write, display callback, and
// physical-board validation for one completed move onto the serial task
// worker, preserving strict ordering across moves.
func (gm *GameManager) enqueuePostMoveTasks(uci string, isFirstMove bool) {
	fen := gm.Board.FEN()
	whiteClock, blackClock := gm.clockTimes()
	evalScore := gm.evalScoreCentipawns()
	moveCallback := gm.moveCallback

	gm.taskWorker.Submit(func() {
		gm.persistMoveAndMaybeCreateGame(uci, fen, whiteClock, blackClock, evalScore, isFirstMove)

		if moveCallback != nil {
			moveCallback(uci)
		}

		gm.validatePhysicalBoardAfterMove()
	})
}

func (gm *GameManager) clockTimes() (white, black float64) {
	if gm.clock == nil {
		return 0, 0
	}
	return gm.clock.GetTimes()
}

func (gm *GameManager) evalScoreCentipawns() int {
	if gm.analysis == nil {
		return 0
	}
	return int(gm.analysis.Score() * 100)
}

// validatePhysicalBoardAfterMove reads the physical board at low priority
// (skipping validation entirely if the board is busy) and enters correction
// mode if it no longer matches the logical position.
func (gm *GameManager) validatePhysicalBoardAfterMove() {
	current, ok := gm.boardDriver.GetChessStateLowPriority()
	if !ok {
		return
	}
	expected := gm.chessBoardToState(gm.Board.Position())
	if ChessStatesEqual(current, expected) {
		return
	}

	gm.enqueue(func() {
		gm.enterCorrectionMode()
		gm.provideCorrectionGuidance()
	})
}
