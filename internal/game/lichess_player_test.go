package game

import (
	"testing"
	"time"

	"github.com/centaurcore/gamecore/internal/board"
	"github.com/centaurcore/gamecore/internal/lichessclient"
)

// fakeLichessClient is an in-memory LichessClient for tests, avoiding any
// real network access.
type fakeLichessClient struct {
	username       string
	ongoingGameID  string
	hasOngoingGame bool

	streamEvents []lichessclient.GameStateEvent

	sentMoves    []string
	resigned     []string
	drawsOffered []string
}

func (f *fakeLichessClient) Username() (string, error) { return f.username, nil }

func (f *fakeLichessClient) OngoingGameID() (string, bool) {
	return f.ongoingGameID, f.hasOngoingGame
}

func (f *fakeLichessClient) Seek(ratedStr string, timeMinutes, incrementSeconds int, colorPref, ratingRange string) error {
	return nil
}

func (f *fakeLichessClient) AcceptChallenge(challengeID string) error { return nil }

func (f *fakeLichessClient) SendMove(gameID, uci string) error {
	f.sentMoves = append(f.sentMoves, uci)
	return nil
}

func (f *fakeLichessClient) Resign(gameID string) error {
	f.resigned = append(f.resigned, gameID)
	return nil
}

func (f *fakeLichessClient) OfferDraw(gameID string) error {
	f.drawsOffered = append(f.drawsOffered, gameID)
	return nil
}

func (f *fakeLichessClient) StreamGameState(gameID string, stop <-chan struct{}, onEvent func(lichessclient.GameStateEvent)) error {
	for _, ev := range f.streamEvents {
		select {
		case <-stop:
			return nil
		default:
		}
		onEvent(ev)
	}
	return nil
}

func waitForState(t *testing.T, lp *LichessPlayer, want PlayerState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lp.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, got %v", want, lp.State())
}

func TestLichessPlayerOngoingGameReachesReadyFromStream(t *testing.T) {
	fake := &fakeLichessClient{
		username: "centaur",
		streamEvents: []lichessclient.GameStateEvent{
			{
				Type:  "gameFull",
				White: &lichessclient.PlayerInfo{Name: "opponent", Rating: 1800},
				Black: &lichessclient.PlayerInfo{Name: "centaur", Rating: 1700},
			},
		},
	}
	lp := NewLichessPlayerWithClient(LichessConfig{
		Token:  "tok",
		Mode:   LichessOngoingGame,
		GameID: "g1",
	}, fake)
	t.Cleanup(lp.Stop)

	if err := lp.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, lp, StateReady)

	if lp.Color() != board.White {
		t.Fatalf("expected centaur (black name field) to play white, got %v", lp.Color())
	}
}

func TestLichessPlayerOnMoveMadeForwardsToServerWhenOpponentIsToMove(t *testing.T) {
	fake := &fakeLichessClient{username: "centaur"}
	lp := NewLichessPlayerWithClient(LichessConfig{Token: "tok", Mode: LichessOngoingGame, GameID: "g1"}, fake)
	lp.mu.Lock()
	lp.gameID = "g1"
	lp.mu.Unlock()
	lp.setState(StateReady)
	lp.SetColor(board.White)

	pos := board.NewPosition()
	pos.SideToMove = board.White
	lp.OnMoveMade(board.NewMove(board.E2, board.E4), pos)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(fake.sentMoves) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if len(fake.sentMoves) != 1 || fake.sentMoves[0] != "e2e4" {
		t.Fatalf("expected e2e4 to be forwarded to the server, got %v", fake.sentMoves)
	}
}

func TestLichessPlayerOnResignAndDrawOfferRouteThroughClient(t *testing.T) {
	fake := &fakeLichessClient{}
	lp := NewLichessPlayerWithClient(LichessConfig{Token: "tok"}, fake)
	lp.mu.Lock()
	lp.gameID = "g1"
	lp.mu.Unlock()

	lp.OnResign(board.White)
	lp.OnDrawOffer()

	if len(fake.resigned) != 1 || fake.resigned[0] != "g1" {
		t.Fatalf("expected resign routed to client, got %v", fake.resigned)
	}
	if len(fake.drawsOffered) != 1 || fake.drawsOffered[0] != "g1" {
		t.Fatalf("expected draw offer routed to client, got %v", fake.drawsOffered)
	}
}
