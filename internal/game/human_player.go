package game

import "github.com/centaurcore/gamecore/internal/board"

// HumanPlayer is a pass-through Player: it has no engine or network of its
// own, just the shared lift/place tracking in BasePlayer. Grounded on
// original_source/.../players/human.py, which is itself nearly empty — all
// behavior comes from the base class.
type HumanPlayer struct {
	BasePlayer
}

// NewHumanPlayer returns a HumanPlayer that is immediately READY: there is
// nothing to initialize.
func NewHumanPlayer(name string) *HumanPlayer {
	hp := &HumanPlayer{
		BasePlayer: newBasePlayer(PlayerHuman, name, Capabilities{
			CanResign:            true,
			SupportsTakeback:     true,
			SupportsLateCastling: true,
		}),
	}
	hp.doRequestMove = func(*board.Position) {}
	return hp
}

func (hp *HumanPlayer) Start() error {
	hp.setState(StateReady)
	return nil
}

func (hp *HumanPlayer) Stop() {
	hp.setState(StateStopped)
}
