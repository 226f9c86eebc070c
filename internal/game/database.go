package game

import "log"

// persistMoveAndMaybeCreateGame runs on the post-move task worker. On the
// first move of a game it creates the Game row (and an initial empty-move
// record marking the starting position) before inserting the move row
// itself. gameDBID/hasGameDBID are guarded by mu since they are also read
// from the game thread (takeback, result updates, late-castling undo).
func (gm *GameManager) persistMoveAndMaybeCreateGame(uci, fen string, whiteClock, blackClock float64, evalScore int, isFirstMove bool) {
	if !gm.saveToDatabase || gm.persistence == nil {
		return
	}

	gm.mu.Lock()
	hasID := gm.hasGameDBID
	gm.mu.Unlock()

	if isFirstMove || !hasID {
		id, err := gm.persistence.CreateGame(Game{Source: "board"})
		if err != nil {
			log.Printf("[GameManager] create game failed: %v", err)
			return
		}
		gm.mu.Lock()
		gm.gameDBID = id
		gm.hasGameDBID = true
		gm.mu.Unlock()

		if err := gm.persistence.InsertMove(GameMove{GameID: id, Move: "", FEN: StartingFEN}); err != nil {
			log.Printf("[GameManager] insert initial move row failed: %v", err)
		}
	}

	gm.mu.Lock()
	gameID := gm.gameDBID
	gm.mu.Unlock()

	if err := gm.persistence.InsertMove(GameMove{
		GameID:     gameID,
		Move:       uci,
		FEN:        fen,
		WhiteClock: whiteClock,
		BlackClock: blackClock,
		EvalScore:  evalScore,
	}); err != nil {
		log.Printf("[GameManager] insert move failed: %v", err)
	}
}

// StartingFEN is the standard chess starting position, recorded as the
// initial empty-move database row for every new game.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func (gm *GameManager) currentGameDBID() (int64, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.gameDBID, gm.hasGameDBID
}
