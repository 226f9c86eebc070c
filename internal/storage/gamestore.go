package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/centaurcore/gamecore/internal/game"
)

// gameRecord and moveRecord are the BadgerDB-encoded shapes of game.Game and
// game.GameMove; kept separate from those so storage concerns (key layout)
// never leak back into the game package.
type gameRecord struct {
	Source string `json:"source"`
	Event  string `json:"event"`
	Site   string `json:"site"`
	Round  string `json:"round"`
	White  string `json:"white"`
	Black  string `json:"black"`
	Result string `json:"result"`
}

type moveRecord struct {
	GameID     int64   `json:"game_id"`
	Move       string  `json:"move"`
	FEN        string  `json:"fen"`
	WhiteClock float64 `json:"white_clock"`
	BlackClock float64 `json:"black_clock"`
	EvalScore  int     `json:"eval_score"`
}

// GameStore persists completed-and-in-progress games to their own BadgerDB
// directory, isolated from the preferences/stats Storage above so the game
// goroutine can open and close it independently. Keys:
//
//	game:<gameID>                -> gameRecord
//	move:<gameID>:<moveSeq>      -> moveRecord
//
// gameID and moveSeq both come from monotonic badger.Sequence counters
// (game_seq and move_seq respectively), so lexicographic key order matches
// insertion order within each game.
type GameStore struct {
	db      *badger.DB
	gameSeq *badger.Sequence
	moveSeq *badger.Sequence
}

// NewGameStore opens (creating if absent) the game-record database.
func NewGameStore() (*GameStore, error) {
	dbDir, err := GetGameDatabaseDir()
	if err != nil {
		return nil, err
	}
	return newGameStoreAt(dbDir)
}

// newGameStoreAt opens the game-record database at an explicit directory,
// split out of NewGameStore so tests can point it at a temp dir instead of
// the platform data directory.
func newGameStoreAt(dbDir string) (*GameStore, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	gameSeq, err := db.GetSequence([]byte("game_seq"), 100)
	if err != nil {
		db.Close()
		return nil, err
	}
	moveSeq, err := db.GetSequence([]byte("move_seq"), 100)
	if err != nil {
		gameSeq.Release()
		db.Close()
		return nil, err
	}

	return &GameStore{db: db, gameSeq: gameSeq, moveSeq: moveSeq}, nil
}

func gameKey(id int64) []byte {
	key := make([]byte, 5+8)
	copy(key, "game:")
	binary.BigEndian.PutUint64(key[5:], uint64(id))
	return key
}

func moveKey(gameID int64, seq uint64) []byte {
	key := make([]byte, 5+8+8)
	copy(key, "move:")
	binary.BigEndian.PutUint64(key[5:13], uint64(gameID))
	binary.BigEndian.PutUint64(key[13:], seq)
	return key
}

func movePrefix(gameID int64) []byte {
	return moveKey(gameID, 0)[:13]
}

// CreateGame allocates a fresh game ID and writes the initial record.
func (gs *GameStore) CreateGame(g game.Game) (int64, error) {
	id, err := gs.gameSeq.Next()
	if err != nil {
		return 0, err
	}

	rec := gameRecord{Source: g.Source, Event: g.Event, Site: g.Site, Round: g.Round, White: g.White, Black: g.Black, Result: g.Result}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}

	err = gs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gameKey(int64(id)), data)
	})
	return int64(id), err
}

// InsertMove appends a ply under its game's move-key prefix.
func (gs *GameStore) InsertMove(m game.GameMove) error {
	seq, err := gs.moveSeq.Next()
	if err != nil {
		return err
	}

	rec := moveRecord{GameID: m.GameID, Move: m.Move, FEN: m.FEN, WhiteClock: m.WhiteClock, BlackClock: m.BlackClock, EvalScore: m.EvalScore}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return gs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(moveKey(m.GameID, seq), data)
	})
}

// UpdateResult sets the result field on an existing game record.
func (gs *GameStore) UpdateResult(gameID int64, result string) error {
	key := gameKey(gameID)
	return gs.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return fmt.Errorf("game %d not found: %w", gameID, err)
		}
		var rec gameRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return err
		}
		rec.Result = result
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// DeleteLastMove removes the most recently inserted move for gameID,
// mirroring the original's "most recent row" takeback semantics, scoped to
// this game rather than the whole table.
func (gs *GameStore) DeleteLastMove(gameID int64) error {
	prefix := movePrefix(gameID)
	var lastKey []byte

	err := gs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			lastKey = append([]byte(nil), it.Item().Key()...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if lastKey == nil {
		return nil
	}

	return gs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(lastKey)
	})
}

// Close releases the sequence counters and closes the database.
func (gs *GameStore) Close() error {
	gs.gameSeq.Release()
	gs.moveSeq.Release()
	return gs.db.Close()
}
