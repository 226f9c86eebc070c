package board

// PresenceSize is the number of squares on a board; piece-presence
// projections are always this length.
const PresenceSize = 64

// PresenceState projects a position onto a fixed 64-byte array: element i is
// 1 if square i is occupied, else 0. Used for O(1) comparison between a
// physical board reading and the logical position.
func (p *Position) PresenceState() [PresenceSize]byte {
	var state [PresenceSize]byte
	for sq := Square(0); sq < NoSquare; sq++ {
		if !p.IsEmpty(sq) {
			state[sq] = 1
		}
	}
	return state
}

// CenterSquares are d4, d5, e4, e5 — the landing squares of the
// kings-in-center resign/draw gesture.
var CenterSquares = [4]Square{D4, D5, E4, E5}
