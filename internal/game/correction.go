package game

import "github.com/centaurcore/gamecore/internal/board"

// ComputeStateDeltas compares a physical reading against the expected
// logical projection and returns the squares that are missing a piece and
// the squares holding an unexpected one.
func ComputeStateDeltas(current, expected [board.PresenceSize]byte) (missing, extra []board.Square) {
	for i := 0; i < board.PresenceSize; i++ {
		sq := board.Square(i)
		switch {
		case expected[i] == 1 && current[i] == 0:
			missing = append(missing, sq)
		case expected[i] == 0 && current[i] == 1:
			extra = append(extra, sq)
		}
	}
	return missing, extra
}

// CheckKingsInCenterFromState detects the kings-in-center resign/draw
// gesture from a computed delta: both king squares missing, and at least
// two of d4/d5/e4/e5 extra. The caller must already have verified the game
// is not over.
func CheckKingsInCenterFromState(pos *board.Position, missing, extra []board.Square) bool {
	whiteKing := pos.KingSquare[board.White]
	blackKing := pos.KingSquare[board.Black]

	if !containsSquare(missing, whiteKing) || !containsSquare(missing, blackKing) {
		return false
	}

	centerExtras := 0
	for _, sq := range extra {
		for _, c := range board.CenterSquares {
			if sq == c {
				centerExtras++
				break
			}
		}
	}
	return centerExtras >= 2
}

func containsSquare(squares []board.Square, sq board.Square) bool {
	for _, s := range squares {
		if s == sq {
			return true
		}
	}
	return false
}

func squareRowCol(sq board.Square) (row, col int) {
	return int(sq) / 8, int(sq) % 8
}

func manhattanDistance(a, b board.Square) int {
	r1, c1 := squareRowCol(a)
	r2, c2 := squareRowCol(b)
	return absInt(r1-r2) + absInt(c1-c2)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ChooseGuidancePair picks a (from, to) guidance pair out of the extra and
// missing square sets. Preferred algorithm: a Hungarian / linear-sum
// assignment over the |extra| x |missing| Manhattan cost matrix, tie-broken
// to the first row-major minimizer. No such assignment library exists
// anywhere in the retrieved example corpus (checked), so the general case
// always uses the fallback: pair the first extra square with its nearest
// missing square by Manhattan distance.
func ChooseGuidancePair(extra, missing []board.Square) (from, to board.Square) {
	if len(extra) == 1 && len(missing) == 1 {
		return extra[0], missing[0]
	}

	from = extra[0]
	to = missing[0]
	minDist := manhattanDistance(from, to)
	for _, candidate := range missing[1:] {
		d := manhattanDistance(from, candidate)
		if d < minDist {
			minDist = d
			to = candidate
		}
	}
	return from, to
}

// KingsInCenterCallback is invoked once the gesture is detected; the caller
// (GameManager) is responsible for exiting correction mode and resetting
// move state before presenting the resign/draw menu.
type KingsInCenterCallback func()

// ProvideCorrectionGuidance drives LED guidance for restoring the physical
// board to the expected logical state. kingsInCenterEnabled should be false
// once the game has ended, or once the gesture has already fired.
func ProvideCorrectionGuidance(
	led LedCallbacks,
	pos *board.Position,
	current, expected [board.PresenceSize]byte,
	kingsInCenterEnabled bool,
	onKingsInCenter KingsInCenterCallback,
) {
	missing, extra := ComputeStateDeltas(current, expected)

	if len(missing) == 0 && len(extra) == 0 {
		led.Off()
		return
	}

	if kingsInCenterEnabled && onKingsInCenter != nil && CheckKingsInCenterFromState(pos, missing, extra) {
		onKingsInCenter()
		return
	}

	switch {
	case len(extra) > 0 && len(missing) > 0:
		from, to := ChooseGuidancePair(extra, missing)
		led.Off()
		led.FromToFast(from, to, 0)
	case len(missing) > 0:
		led.Off()
		for _, sq := range missing {
			led.SingleFast(sq, 0)
		}
	case len(extra) > 0:
		led.Off()
		led.ArrayFast(extra, 0)
	}
}
