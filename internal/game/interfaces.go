// Package game implements the game interaction core: GameManager, MoveState,
// the Player state machine and PlayerManager, and the correction engine that
// reconciles physical piece events against the logical chess position.
package game

import (
	"time"

	"github.com/centaurcore/gamecore/internal/board"
)

// EventKind enumerates the values passed to an EventCallback.
type EventKind int

const (
	EventNewGame EventKind = iota
	EventWhiteTurn
	EventBlackTurn
	EventRequestDraw
	EventResignGame
	EventLiftPiece
	EventPlacePiece
	EventTermination
)

// PieceEventType distinguishes a LIFT from a PLACE on the physical board.
type PieceEventType int

const (
	EventLift PieceEventType = iota
	EventPlace
)

// Key mirrors the board driver's key identifiers. Only BACK carries
// game-level meaning; all other values are passed through unexamined.
type Key int

const KeyBack Key = 0

// Sound identifiers used with BoardDriver.Beep.
type Sound int

const (
	SoundGeneral Sound = iota
	SoundWrongMove
)

// BoardDriver is the physical sensor board collaborator (consumed, not
// owned — raw serial framing lives entirely outside the core).
type BoardDriver interface {
	// GetChessState returns the current 64-byte piece-presence reading,
	// blocking until the board responds. Returns ok=false if unavailable.
	GetChessState() (state [board.PresenceSize]byte, ok bool)
	// GetChessStateLowPriority yields if a higher-priority poll is already
	// in flight and may return ok=false rather than block.
	GetChessStateLowPriority() (state [board.PresenceSize]byte, ok bool)
	Beep(sound Sound, eventType string)
}

// LedCallbacks is the LED feedback collaborator. repeat=0 means "continuous
// until cancelled".
type LedCallbacks interface {
	Off()
	SingleFast(sq board.Square, repeat int)
	FromTo(from, to board.Square, repeat int)
	FromToFast(from, to board.Square, repeat int)
	FromToHint(from, to board.Square, repeat int)
	ArrayFast(squares []board.Square, repeat int)
}

// ClockService is the external clock-tick collaborator (consumed).
type ClockService interface {
	GetTimes() (whiteSeconds, blackSeconds float64)
	SetTimes(whiteSeconds, blackSeconds float64)
}

// AnalysisState is the background-analysis collaborator (consumed); Score
// is observable in pawns and converted to centipawns by the core before
// persistence.
type AnalysisState interface {
	Score() float64
}

// Game is the persisted shape of a completed-or-in-progress game record.
type Game struct {
	ID     int64
	Source string
	Event  string
	Site   string
	Round  string
	White  string
	Black  string
	Result string
}

// GameMove is one persisted ply.
type GameMove struct {
	GameID     int64
	Move       string
	FEN        string
	WhiteClock float64
	BlackClock float64
	EvalScore  int
}

// Persistence is the narrow storage collaborator (consumed). The core
// issues a Game insert on the first move, an initial empty-move record, one
// GameMove insert per subsequent ply, a result update at termination, and a
// delete of the most recent GameMove on takeback. Session lifetime is owned
// by the caller (created inside the game thread).
type Persistence interface {
	CreateGame(g Game) (int64, error)
	InsertMove(m GameMove) error
	UpdateResult(gameID int64, result string) error
	DeleteLastMove(gameID int64) error
	Close() error
}

// EventCallback is fired for game/UI-visible events. For EventLiftPiece and
// EventPlacePiece, field and seconds carry the square and event timestamp;
// for EventTermination, detail carries the chess-library termination string.
type EventCallback func(kind EventKind, field board.Square, seconds float64, detail string)

// MoveCallback is fired after each successfully applied move (display +
// emulator forwarding).
type MoveCallback func(uci string)

// KeyCallback is fired for key events the core does not intercept itself.
type KeyCallback func(key Key)

// TakebackCallback is fired after a detected takeback has been applied.
type TakebackCallback func()

// PromotionCallback asks the UI which piece to promote to; returns one of
// "q","r","b","n".
type PromotionCallback func(isWhitePromotion bool) string

// now is overridable in tests; production code always uses time.Now.
var now = time.Now
