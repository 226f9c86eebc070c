package game

import "github.com/centaurcore/gamecore/internal/board"

// CorrectionMode is active whenever the physical board diverges from the
// logical position. The expected-state snapshot is refreshed on every
// correction-mode event rather than trusted as immutable, because the
// logical board can itself advance (forced-move execution, takeback) while
// correction is active.
type CorrectionMode struct {
	Active        bool
	ExpectedState [board.PresenceSize]byte

	// JustExited is true for exactly one subsequent event after Exit, to
	// suppress a stale PLACE event that arrives immediately after the board
	// is restored. Cleared whether or not the event consumed it.
	JustExited bool
}

// Enter records a snapshot of the piece-presence state the physical board
// must be restored to.
func (cm *CorrectionMode) Enter(expected [board.PresenceSize]byte) {
	cm.Active = true
	cm.ExpectedState = expected
}

// Refresh updates the expected-state snapshot without changing Active.
func (cm *CorrectionMode) Refresh(expected [board.PresenceSize]byte) {
	cm.ExpectedState = expected
}

// Exit clears the active flag and arms the one-shot JustExited flag.
func (cm *CorrectionMode) Exit() {
	cm.Active = false
	cm.JustExited = true
}

// ClearExitFlag clears JustExited. Called whether or not the current event
// relied on it.
func (cm *CorrectionMode) ClearExitFlag() {
	cm.JustExited = false
}

// ConsumeJustExited reports and clears JustExited in one step — the usual
// way call sites check the one-shot flag.
func (cm *CorrectionMode) ConsumeJustExited() bool {
	v := cm.JustExited
	cm.JustExited = false
	return v
}
