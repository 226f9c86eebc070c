package game

import "github.com/centaurcore/gamecore/internal/board"

// Termination mirrors the strings a chess library reports for how a game
// ended.
type Termination string

const (
	TerminationNone                 Termination = ""
	TerminationCheckmate            Termination = "CHECKMATE"
	TerminationStalemate            Termination = "STALEMATE"
	TerminationInsufficientMaterial Termination = "INSUFFICIENT_MATERIAL"
	TerminationFiftyMoves           Termination = "FIFTY_MOVES"
	TerminationThreefoldRepetition  Termination = "THREEFOLD_REPETITION"
	TerminationResign               Termination = "RESIGN"
	TerminationTimeForfeit          Termination = "TIME_FORFEIT"
	TerminationDrawAgreement        Termination = "DRAW_AGREEMENT"
)

// Outcome describes a terminal position.
type Outcome struct {
	Result      string // "1-0", "0-1", "1/2-1/2"
	Termination Termination
}

// Observer is notified whenever the logical board is mutated via Push, Pop,
// Reset, or SetResult.
type Observer interface {
	OnBoardChanged()
}

// LogicalBoard is the sole authoritative path to the chess position. It
// wraps board.Position (the chess rules library) together with the move
// and position-hash history needed for takeback, late-castling undo, and
// threefold-repetition claims. All mutation goes through Push/Pop/Reset/
// SetResult; read-only access (PieceAt, Turn, LegalMoves, ...) is lock-free.
type LogicalBoard struct {
	pos          *board.Position
	moveStack    []board.Move
	undoStack    []board.UndoInfo
	hashHistory  []uint64
	cachedResult *Outcome

	observers []Observer
}

// NewLogicalBoard returns a board at the standard starting position.
func NewLogicalBoard() *LogicalBoard {
	lb := &LogicalBoard{pos: board.NewPosition()}
	lb.hashHistory = append(lb.hashHistory, lb.pos.Hash)
	return lb
}

// AddObserver registers o to be notified on every mutation.
func (lb *LogicalBoard) AddObserver(o Observer) {
	lb.observers = append(lb.observers, o)
}

func (lb *LogicalBoard) notify() {
	for _, o := range lb.observers {
		o.OnBoardChanged()
	}
}

// Position returns the underlying chess-library position for read-only use
// (legal move generation, piece lookups). Callers must not mutate it
// directly.
func (lb *LogicalBoard) Position() *board.Position { return lb.pos }

// Turn returns the side to move.
func (lb *LogicalBoard) Turn() board.Color { return lb.pos.SideToMove }

// FEN returns the position's FEN string.
func (lb *LogicalBoard) FEN() string { return lb.pos.ToFEN() }

// PresenceState returns the 64-byte piece-presence projection of the
// current position.
func (lb *LogicalBoard) PresenceState() [board.PresenceSize]byte {
	return lb.pos.PresenceState()
}

// LegalMoves returns all legal moves in the current position.
func (lb *LogicalBoard) LegalMoves() []board.Move {
	return lb.pos.GenerateLegalMoves().Slice()
}

// IsLegal reports whether m is legal in the current position.
func (lb *LogicalBoard) IsLegal(m board.Move) bool {
	for _, legal := range lb.LegalMoves() {
		if legal == m {
			return true
		}
	}
	return false
}

// IsCapture reports whether m captures a piece (including en passant) in
// the current position.
func (lb *LogicalBoard) IsCapture(m board.Move) bool { return m.IsCapture(lb.pos) }

// MoveCount returns the number of plies pushed so far.
func (lb *LogicalBoard) MoveCount() int { return len(lb.moveStack) }

// PreviousPresenceState returns the piece-presence projection one ply before
// the current position, without mutating the board (it unmakes the last
// move on a copy). ok is false if there is no move to undo.
func (lb *LogicalBoard) PreviousPresenceState() ([board.PresenceSize]byte, bool) {
	n := len(lb.moveStack)
	if n == 0 {
		return [board.PresenceSize]byte{}, false
	}
	cp := lb.pos.Copy()
	cp.UnmakeMove(lb.moveStack[n-1], lb.undoStack[n-1])
	return cp.PresenceState(), true
}

// Push applies a legal move to the position. Returns an error if the move
// is not legal — the caller (move execution pipeline) treats this as an
// opaque chess-library push failure.
func (lb *LogicalBoard) Push(m board.Move) error {
	if !lb.IsLegal(m) {
		return errIllegalMove{m}
	}
	undo := lb.pos.MakeMove(m)
	lb.moveStack = append(lb.moveStack, m)
	lb.undoStack = append(lb.undoStack, undo)
	lb.hashHistory = append(lb.hashHistory, lb.pos.Hash)
	lb.cachedResult = nil
	lb.notify()
	return nil
}

// Pop undoes the most recent move and returns it.
func (lb *LogicalBoard) Pop() (board.Move, bool) {
	n := len(lb.moveStack)
	if n == 0 {
		return board.NoMove, false
	}
	m := lb.moveStack[n-1]
	undo := lb.undoStack[n-1]
	lb.pos.UnmakeMove(m, undo)
	lb.moveStack = lb.moveStack[:n-1]
	lb.undoStack = lb.undoStack[:n-1]
	lb.hashHistory = lb.hashHistory[:len(lb.hashHistory)-1]
	lb.cachedResult = nil
	lb.notify()
	return m, true
}

// Reset returns the board to the standard starting position and clears all
// history.
func (lb *LogicalBoard) Reset() {
	lb.pos = board.NewPosition()
	lb.moveStack = nil
	lb.undoStack = nil
	lb.hashHistory = []uint64{lb.pos.Hash}
	lb.cachedResult = nil
	lb.notify()
}

// SetResult caches a terminal outcome (e.g. resignation, flag fall) that
// does not arise from the position itself.
func (lb *LogicalBoard) SetResult(o Outcome) {
	lb.cachedResult = &o
	lb.notify()
}

// CachedResult returns a previously SetResult outcome, if any.
func (lb *LogicalBoard) CachedResult() (Outcome, bool) {
	if lb.cachedResult == nil {
		return Outcome{}, false
	}
	return *lb.cachedResult, true
}

// repetitionCount returns how many times the current position's hash has
// occurred in this game.
func (lb *LogicalBoard) repetitionCount() int {
	count := 0
	current := lb.pos.Hash
	for _, h := range lb.hashHistory {
		if h == current {
			count++
		}
	}
	return count
}

// Outcome reports the game's terminal status, mirroring python-chess's
// board.outcome(claim_draw=True): checkmate, stalemate, insufficient
// material, the fifty-move rule, or threefold repetition. Returns ok=false
// if the game is still in progress and no result has been cached via
// SetResult.
func (lb *LogicalBoard) Outcome() (Outcome, bool) {
	if lb.cachedResult != nil {
		return *lb.cachedResult, true
	}

	if lb.pos.IsCheckmate() {
		result := "0-1"
		if lb.pos.SideToMove == board.Black {
			result = "1-0"
		}
		return Outcome{Result: result, Termination: TerminationCheckmate}, true
	}
	if lb.pos.IsStalemate() {
		return Outcome{Result: "1/2-1/2", Termination: TerminationStalemate}, true
	}
	if lb.pos.IsInsufficientMaterial() {
		return Outcome{Result: "1/2-1/2", Termination: TerminationInsufficientMaterial}, true
	}
	if lb.pos.HalfMoveClock >= 100 {
		return Outcome{Result: "1/2-1/2", Termination: TerminationFiftyMoves}, true
	}
	if lb.repetitionCount() >= 3 {
		return Outcome{Result: "1/2-1/2", Termination: TerminationThreefoldRepetition}, true
	}
	return Outcome{}, false
}

// IsGameOver is a convenience wrapper around Outcome.
func (lb *LogicalBoard) IsGameOver() bool {
	_, over := lb.Outcome()
	return over
}

type errIllegalMove struct{ m board.Move }

func (e errIllegalMove) Error() string { return "illegal move: " + e.m.String() }
