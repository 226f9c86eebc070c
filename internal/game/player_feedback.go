package game

import "github.com/centaurcore/gamecore/internal/board"

// onPendingMove is wired as PlayerManager's pending-move callback: fired
// when a non-human player (engine, Lichess, hand-brain hint) has a move
// ready to display on the physical board before it is actually made.
// Ported from game_manager.py's _on_pending_move.
func (gm *GameManager) onPendingMove(m board.Move) {
	gm.MoveState.SetComputerMove(m.String(), true)
	gm.broadcastPendingMoveLocked(m.String(), true)
	gm.led2().FromTo(m.From(), m.To(), 0)
}

// onPlayerError is wired as PlayerManager's error callback. Ported from
// game_manager.py's _on_player_error dispatch table.
func (gm *GameManager) onPlayerError(errorType string) {
	switch errorType {
	case "piece_returned":
		if pm := gm.playerManagerRef(); pm != nil {
			if pending, ok := pm.CurrentPendingMove(gm.Board.Position()); ok {
				gm.led2().FromTo(pending.From(), pending.To(), 0)
				return
			}
		}
		gm.led2().Off()
		return

	case "place_without_lift":
		current, ok := gm.boardDriver.GetChessState()
		if ok && isStartingPositionState(current) {
			gm.resetGame()
			return
		}
		if ok && gm.Board.MoveCount() > 0 && gm.checkTakeback(current) {
			return
		}
		gm.beep(SoundWrongMove)
		gm.enterCorrectionMode()
		gm.provideCorrectionGuidance()
		return

	default:
		// move_mismatch and anything unrecognized.
		gm.beep(SoundWrongMove)
		gm.enterCorrectionMode()
		gm.provideCorrectionGuidance()
	}
}
