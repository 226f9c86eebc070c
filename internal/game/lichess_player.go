package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/centaurcore/gamecore/internal/board"
	"github.com/centaurcore/gamecore/internal/lichessclient"
)

// LichessGameMode selects how a LichessPlayer joins a game.
type LichessGameMode int

const (
	LichessNewGame LichessGameMode = iota
	LichessOngoingGame
	LichessChallenge
)

// LichessConfig configures a LichessPlayer.
type LichessConfig struct {
	Token   string
	BaseURL string // defaults to lichessclient.DefaultBaseURL

	Mode               LichessGameMode
	TimeMinutes        int
	IncrementSeconds   int
	Rated              bool
	ColorPreference    string // "white" | "black" | "random"
	RatingRange        string
	GameID             string // for LichessOngoingGame
	ChallengeID        string // for LichessChallenge
	ChallengeDirection string // "in" | "out"
}

// LichessClient is the narrow surface LichessPlayer needs from the board
// API: account lookup, seek/accept/resign/draw/move calls, and the board
// game-state stream. internal/lichessclient.Client implements it; this
// keeps raw net/http and NDJSON scanning out of internal/game, mirroring
// how EnginePlayer never touches os/exec directly.
type LichessClient interface {
	Username() (string, error)
	OngoingGameID() (string, bool)
	Seek(ratedStr string, timeMinutes, incrementSeconds int, colorPref, ratingRange string) error
	AcceptChallenge(challengeID string) error
	SendMove(gameID, uci string) error
	Resign(gameID string) error
	OfferDraw(gameID string) error
	StreamGameState(gameID string, stop <-chan struct{}, onEvent func(lichessclient.GameStateEvent)) error
}

// LichessPlayer represents the remote side of an online game: moves come
// from the Lichess server via a streamed game state, and local moves are
// echoed back to it.
type LichessPlayer struct {
	BasePlayer

	cfg    LichessConfig
	client LichessClient

	mu                 sync.Mutex
	gameID             string
	username           string
	localIsWhite       bool
	whitePlayer        string
	blackPlayer        string
	whiteRating        string
	blackRating        string
	remoteMoves        string
	lastProcessedMoves string

	stopCh chan struct{}

	clockCallback    func(whiteSeconds, blackSeconds float64)
	gameInfoCallback func(whitePlayer, whiteRating, blackPlayer, blackRating string)

	// positionProvider gives the remote-move parser the position context
	// board.ParseMove needs to disambiguate castling/en-passant. Wired by
	// whoever constructs the player (PlayerManager, from the shared
	// LogicalBoard) since the streaming goroutine otherwise never sees a
	// live position.
	positionProvider func() *board.Position
}

// SetPositionProvider wires the function used to fetch the current
// position when parsing a UCI move string from the server stream.
func (lp *LichessPlayer) SetPositionProvider(fn func() *board.Position) {
	lp.positionProvider = fn
}

// NewLichessPlayer returns a LichessPlayer in the UNINITIALIZED state,
// backed by a real lichessclient.Client.
func NewLichessPlayer(cfg LichessConfig) *LichessPlayer {
	return NewLichessPlayerWithClient(cfg, lichessclient.New(lichessclient.Config{
		Token:   cfg.Token,
		BaseURL: cfg.BaseURL,
	}))
}

// NewLichessPlayerWithClient is NewLichessPlayer with an injected
// LichessClient, for tests.
func NewLichessPlayerWithClient(cfg LichessConfig, client LichessClient) *LichessPlayer {
	lp := &LichessPlayer{
		BasePlayer: newBasePlayer(PlayerLichess, "Lichess", Capabilities{
			CanResign:            true,
			SupportsTakeback:     false,
			SupportsLateCastling: false,
		}),
		cfg:    cfg,
		client: client,
		stopCh: make(chan struct{}),
	}
	lp.doRequestMove = lp.requestMove
	lp.onMoveFormed = lp.moveFormed
	return lp
}

func (lp *LichessPlayer) SetClockCallback(fn func(whiteSeconds, blackSeconds float64)) {
	lp.clockCallback = fn
}

func (lp *LichessPlayer) SetGameInfoCallback(fn func(whitePlayer, whiteRating, blackPlayer, blackRating string)) {
	lp.gameInfoCallback = fn
}

// Start authenticates, then dispatches to the configured mode's game flow
// on a background goroutine.
func (lp *LichessPlayer) Start() error {
	if lp.cfg.Token == "" {
		lp.setState(StateError)
		return fmt.Errorf("lichess: no API token configured")
	}
	lp.setState(StateInitializing)

	go func() {
		username, err := lp.client.Username()
		if err != nil {
			lp.setState(StateError)
			lp.reportError("lichess_auth_failed")
			return
		}
		lp.mu.Lock()
		lp.username = username
		lp.mu.Unlock()

		switch lp.cfg.Mode {
		case LichessNewGame:
			lp.seekGame()
		case LichessOngoingGame:
			lp.mu.Lock()
			lp.gameID = lp.cfg.GameID
			lp.mu.Unlock()
			go lp.streamGame(lp.cfg.GameID)
		case LichessChallenge:
			if lp.cfg.ChallengeDirection == "in" {
				_ = lp.client.AcceptChallenge(lp.cfg.ChallengeID)
			}
			lp.mu.Lock()
			lp.gameID = lp.cfg.ChallengeID
			lp.mu.Unlock()
			go lp.streamGame(lp.cfg.ChallengeID)
		}
	}()

	return nil
}

func (lp *LichessPlayer) Stop() {
	close(lp.stopCh)
	lp.setState(StateStopped)
}

func (lp *LichessPlayer) requestMove(pos *board.Position) {
	if pending, has := lp.PendingMove(); has {
		if lp.pendingMoveCallback != nil {
			lp.pendingMoveCallback(pending)
		}
	}
}

func (lp *LichessPlayer) moveFormed(formed board.Move, pos *board.Position) {
	pending, has := lp.PendingMove()
	if !has {
		lp.reportError("move_mismatch")
		return
	}
	if formed.From() == pending.From() && formed.To() == pending.To() {
		lp.submitMove(pending)
		return
	}
	lp.reportError("move_mismatch")
}

// OnMoveMade clears pending state; if it is now this player's own color to
// move, the prior mover was the local human, so forward that move to the
// server (not an echo of a move this player itself reported).
func (lp *LichessPlayer) OnMoveMade(m board.Move, pos *board.Position) {
	lp.clearPendingMove()
	if pos.SideToMove == lp.Color() {
		go lp.sendMoveToServer(m)
	}
}

func (lp *LichessPlayer) OnResign(board.Color) {
	lp.mu.Lock()
	gameID := lp.gameID
	lp.mu.Unlock()
	if gameID == "" {
		return
	}
	_ = lp.client.Resign(gameID)
}

func (lp *LichessPlayer) OnDrawOffer() {
	lp.mu.Lock()
	gameID := lp.gameID
	lp.mu.Unlock()
	if gameID == "" {
		return
	}
	_ = lp.client.OfferDraw(gameID)
}

func (lp *LichessPlayer) GetInfo() map[string]string {
	info := lp.BasePlayer.GetInfo()
	lp.mu.Lock()
	defer lp.mu.Unlock()
	info["game_id"] = lp.gameID
	info["username"] = lp.username
	info["white_player"] = lp.whitePlayer
	info["black_player"] = lp.blackPlayer
	info["white_rating"] = lp.whiteRating
	info["black_rating"] = lp.blackRating
	info["description"] = "Lichess online game"
	return info
}

func (lp *LichessPlayer) sendMoveToServer(m board.Move) {
	if lp.State() != StateReady {
		return
	}
	lp.mu.Lock()
	gameID := lp.gameID
	lp.mu.Unlock()
	if gameID == "" {
		return
	}

	uci := m.String()
	const retries = 3
	for attempt := 0; attempt < retries; attempt++ {
		if err := lp.client.SendMove(gameID, uci); err == nil {
			return
		}
		if attempt < retries-1 {
			time.Sleep(500 * time.Millisecond)
		}
	}
	lp.reportError("lichess_move_send_failed")
}

func (lp *LichessPlayer) seekGame() {
	colorPref := strings.ToLower(lp.cfg.ColorPreference)

	go func() {
		_ = lp.client.Seek(fmt.Sprintf("%t", lp.cfg.Rated), lp.cfg.TimeMinutes, lp.cfg.IncrementSeconds, colorPref, lp.cfg.RatingRange)
	}()

	const maxAttempts = 30
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-lp.stopCh:
			return
		default:
		}

		gameID, ok := lp.client.OngoingGameID()
		if ok {
			lp.mu.Lock()
			lp.gameID = gameID
			lp.mu.Unlock()
			go lp.streamGame(gameID)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	lp.setState(StateError)
	lp.reportError("lichess_game_not_found")
}

// streamGame reads decoded events from the board game-state stream until
// stopped or the connection ends.
func (lp *LichessPlayer) streamGame(gameID string) {
	err := lp.client.StreamGameState(gameID, lp.stopCh, lp.processGameState)
	if err != nil {
		lp.setState(StateError)
		lp.reportError("lichess_stream_failed")
	}
}

func (lp *LichessPlayer) processGameState(ev lichessclient.GameStateEvent) {
	if ev.White != nil && ev.Black != nil {
		lp.extractPlayerInfo(*ev.White, *ev.Black)
	}

	var moves, status string
	var wtimeMs, btimeMs int64
	if ev.State != nil {
		moves, status, wtimeMs, btimeMs = ev.State.Moves, ev.State.Status, ev.State.Wtime, ev.State.Btime
	} else {
		moves, status, wtimeMs, btimeMs = ev.Moves, ev.Status, ev.Wtime, ev.Btime
	}
	if wtimeMs > 0 || btimeMs > 0 {
		if lp.clockCallback != nil {
			lp.clockCallback(float64(wtimeMs)/1000, float64(btimeMs)/1000)
		}
	}

	lp.mu.Lock()
	changed := moves != lp.remoteMoves
	if changed {
		lp.remoteMoves = moves
	}
	lp.mu.Unlock()
	if changed {
		lp.checkForRemoteMove(moves)
	}

	lp.checkGameStatus(status)
}

func (lp *LichessPlayer) extractPlayerInfo(white, black lichessclient.PlayerInfo) {
	lp.mu.Lock()
	lp.whitePlayer = white.Name
	lp.blackPlayer = black.Name
	lp.whiteRating = fmt.Sprintf("%d", white.Rating)
	lp.blackRating = fmt.Sprintf("%d", black.Rating)
	username := lp.username
	lp.mu.Unlock()

	localIsWhite := white.Name == username
	lp.localIsWhite = localIsWhite
	if localIsWhite {
		lp.SetColor(board.Black)
	} else {
		lp.SetColor(board.White)
	}

	lp.setState(StateReady)

	if lp.gameInfoCallback != nil {
		lp.gameInfoCallback(white.Name, lp.whiteRating, black.Name, lp.blackRating)
	}
}

// checkForRemoteMove parses the tail of the server's space-separated move
// list and stores it as the pending move, unless it is an echo of the local
// player's own move just sent.
func (lp *LichessPlayer) checkForRemoteMove(moves string) {
	fields := strings.Fields(moves)
	if len(fields) == 0 {
		return
	}

	lp.mu.Lock()
	if moves == lp.lastProcessedMoves {
		lp.mu.Unlock()
		return
	}
	lp.lastProcessedMoves = moves
	lp.mu.Unlock()

	lastMove := strings.ToLower(fields[len(fields)-1])
	lastMoveWasWhite := len(fields)%2 == 1

	if lp.localIsWhite && lastMoveWasWhite {
		return
	}
	if !lp.localIsWhite && !lastMoveWasWhite {
		return
	}

	if lp.positionProvider == nil {
		lp.reportError("lichess_invalid_move")
		return
	}
	m, err := board.ParseMove(lastMove, lp.positionProvider())
	if err != nil {
		lp.reportError("lichess_invalid_move")
		return
	}
	lp.setPendingMove(m)
}

func (lp *LichessPlayer) checkGameStatus(status string) {
	status = strings.ToLower(status)
	switch status {
	case "mate", "resign", "draw", "aborted", "outoftime", "timeout", "stalemate":
		lp.setState(StateStopped)
	}
}
