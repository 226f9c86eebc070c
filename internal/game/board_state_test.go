package game

import (
	"testing"

	"github.com/centaurcore/gamecore/internal/board"
)

func TestLogicalBoardPushPop(t *testing.T) {
	lb := NewLogicalBoard()
	m := board.NewMove(board.E2, board.E4)

	if err := lb.Push(m); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if lb.MoveCount() != 1 {
		t.Fatalf("expected 1 move, got %d", lb.MoveCount())
	}
	if lb.Turn() != board.Black {
		t.Fatalf("expected black to move, got %v", lb.Turn())
	}

	popped, ok := lb.Pop()
	if !ok || popped != m {
		t.Fatalf("Pop returned (%v, %v), want (%v, true)", popped, ok, m)
	}
	if lb.MoveCount() != 0 {
		t.Fatalf("expected 0 moves after pop, got %d", lb.MoveCount())
	}
	if lb.Turn() != board.White {
		t.Fatalf("expected white to move after pop, got %v", lb.Turn())
	}
}

func TestLogicalBoardPreviousPresenceStateDoesNotMutate(t *testing.T) {
	lb := NewLogicalBoard()
	starting := lb.PresenceState()

	if err := lb.Push(board.NewMove(board.E2, board.E4)); err != nil {
		t.Fatalf("Push: %v", err)
	}

	previous, ok := lb.PreviousPresenceState()
	if !ok {
		t.Fatal("expected a previous state with one move pushed")
	}
	if previous != starting {
		t.Fatal("previous presence state should equal the starting position")
	}
	if lb.MoveCount() != 1 {
		t.Fatalf("PreviousPresenceState must not mutate the board; still expected 1 move, got %d", lb.MoveCount())
	}
	if lb.Turn() != board.Black {
		t.Fatalf("PreviousPresenceState must not mutate the board; turn still should be black, got %v", lb.Turn())
	}
}

func TestLogicalBoardPreviousPresenceStateNoMoves(t *testing.T) {
	lb := NewLogicalBoard()
	if _, ok := lb.PreviousPresenceState(); ok {
		t.Fatal("expected ok=false with no moves pushed")
	}
}

func TestLogicalBoardObserverNotifiedOnMutation(t *testing.T) {
	lb := NewLogicalBoard()
	calls := 0
	lb.AddObserver(observerFunc(func() { calls++ }))

	_ = lb.Push(board.NewMove(board.E2, board.E4))
	if calls != 1 {
		t.Fatalf("expected 1 notification after Push, got %d", calls)
	}

	lb.Pop()
	if calls != 2 {
		t.Fatalf("expected 2 notifications after Pop, got %d", calls)
	}
}

type observerFunc func()

func (f observerFunc) OnBoardChanged() { f() }
