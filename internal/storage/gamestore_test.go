package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/centaurcore/gamecore/internal/game"
)

func newTestGameStore(t *testing.T) *GameStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "gamestore-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	gs, err := newGameStoreAt(filepath.Join(tmpDir, "db"))
	if err != nil {
		t.Fatalf("newGameStoreAt: %v", err)
	}
	t.Cleanup(func() { gs.Close() })
	return gs
}

func TestGameStoreCreateAndUpdateResult(t *testing.T) {
	gs := newTestGameStore(t)

	id, err := gs.CreateGame(game.Game{White: "Alice", Black: "Bob", Event: "Casual"})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a nonzero game ID")
	}

	if err := gs.UpdateResult(id, "1-0"); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}

	if err := gs.UpdateResult(id+1000, "1-0"); err == nil {
		t.Fatal("expected an error updating a nonexistent game")
	}
}

func TestGameStoreInsertAndDeleteLastMove(t *testing.T) {
	gs := newTestGameStore(t)

	id, err := gs.CreateGame(game.Game{White: "Alice", Black: "Bob"})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	moves := []string{"e2e4", "e7e5", "g1f3"}
	for _, mv := range moves {
		if err := gs.InsertMove(game.GameMove{GameID: id, Move: mv}); err != nil {
			t.Fatalf("InsertMove(%s): %v", mv, err)
		}
	}

	// Deleting the last move three times should remove exactly the three
	// inserted moves and then become a no-op, never touching another game's
	// moves or the game record itself.
	for i := 0; i < len(moves); i++ {
		if err := gs.DeleteLastMove(id); err != nil {
			t.Fatalf("DeleteLastMove: %v", err)
		}
	}
	if err := gs.DeleteLastMove(id); err != nil {
		t.Fatalf("DeleteLastMove on an already-empty game should be a no-op, got: %v", err)
	}
}

func TestGameStoreMovesScopedPerGame(t *testing.T) {
	gs := newTestGameStore(t)

	id1, err := gs.CreateGame(game.Game{White: "Alice", Black: "Bob"})
	if err != nil {
		t.Fatalf("CreateGame 1: %v", err)
	}
	id2, err := gs.CreateGame(game.Game{White: "Carol", Black: "Dave"})
	if err != nil {
		t.Fatalf("CreateGame 2: %v", err)
	}

	if err := gs.InsertMove(game.GameMove{GameID: id1, Move: "e2e4"}); err != nil {
		t.Fatalf("InsertMove game1: %v", err)
	}

	// Deleting game2's last move must not touch game1's only move, even
	// though game2 has none.
	if err := gs.DeleteLastMove(id2); err != nil {
		t.Fatalf("DeleteLastMove game2: %v", err)
	}
	game1Moves := 0
	if err := gs.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := movePrefix(id1)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			game1Moves++
		}
		return nil
	}); err != nil {
		t.Fatalf("counting game1 moves: %v", err)
	}
	if game1Moves != 1 {
		t.Fatalf("expected game1 to keep its 1 move, got %d", game1Moves)
	}
	if err := gs.DeleteLastMove(id1); err != nil {
		t.Fatalf("DeleteLastMove game1: %v", err)
	}
	// game1's move is gone now too; a second delete must stay a no-op.
	if err := gs.DeleteLastMove(id1); err != nil {
		t.Fatalf("second DeleteLastMove game1 should be a no-op, got: %v", err)
	}
}
