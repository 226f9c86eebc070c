package lichessclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Token: "test-token", BaseURL: srv.URL}), srv
}

func TestUsername(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer auth header, got %q", got)
		}
		if r.URL.Path != "/api/account" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"username": "centaur"})
	})

	name, err := c.Username()
	if err != nil {
		t.Fatalf("Username: %v", err)
	}
	if name != "centaur" {
		t.Fatalf("expected centaur, got %q", name)
	}
}

func TestOngoingGameID(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nowPlaying": []map[string]string{{"gameId": "abcd1234"}},
		})
	})

	id, ok := c.OngoingGameID()
	if !ok {
		t.Fatal("expected an ongoing game ID")
	}
	if id != "abcd1234" {
		t.Fatalf("expected abcd1234, got %q", id)
	}
}

func TestOngoingGameIDNoneInProgress(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"nowPlaying": []map[string]string{}})
	})

	if _, ok := c.OngoingGameID(); ok {
		t.Fatal("expected no ongoing game")
	}
}

func TestSendMoveAndResignHitExpectedPaths(t *testing.T) {
	var gotPaths []string
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	if err := c.SendMove("g1", "e2e4"); err != nil {
		t.Fatalf("SendMove: %v", err)
	}
	if err := c.Resign("g1"); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if err := c.OfferDraw("g1"); err != nil {
		t.Fatalf("OfferDraw: %v", err)
	}

	want := []string{
		"/api/board/game/g1/move/e2e4",
		"/api/board/game/g1/resign",
		"/api/board/game/g1/draw/yes",
	}
	if len(gotPaths) != len(want) {
		t.Fatalf("expected %d requests, got %d: %v", len(want), len(gotPaths), gotPaths)
	}
	for i, p := range want {
		if gotPaths[i] != p {
			t.Errorf("request %d: expected %q, got %q", i, p, gotPaths[i])
		}
	}
}

func TestSendMovePropagatesServerError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	if err := c.SendMove("g1", "e2e4"); err == nil {
		t.Fatal("expected an error for a 4xx response")
	}
}

func TestStreamGameStateDecodesEventsUntilStopped(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		lines := []string{
			`{"type":"gameFull","white":{"name":"alice","rating":1500},"black":{"name":"bob","rating":1600}}`,
			`{"type":"gameState","moves":"e2e4","status":"started","wtime":60000,"btime":60000}`,
		}
		for _, l := range lines {
			_, _ = io.WriteString(w, l+"\n")
			if flusher != nil {
				flusher.Flush()
			}
		}
	})

	stop := make(chan struct{})
	var events []GameStateEvent
	err := c.StreamGameState("g1", stop, func(ev GameStateEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("StreamGameState: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].White == nil || events[0].White.Name != "alice" {
		t.Fatalf("expected first event to carry white player info, got %+v", events[0])
	}
	if events[1].Moves != "e2e4" {
		t.Fatalf("expected second event's moves to be e2e4, got %q", events[1].Moves)
	}
}
