// Package analysis provides the background-evaluation collaborator that
// game.GameManager consumes through the narrow game.AnalysisState
// interface, mirroring the original universalchess.state.analysis module's
// lone-`score`-field singleton.
package analysis

import (
	"sync"
	"sync/atomic"

	"github.com/centaurcore/gamecore/internal/board"
	"github.com/centaurcore/gamecore/internal/engine"
)

// Watcher runs the embedded engine's static evaluator against whatever
// position it is last told about and exposes the result in pawns, safe for
// concurrent reads from the game goroutine while Update runs from wherever
// the host application drives position changes (e.g. after every move).
type Watcher struct {
	eng *engine.Engine

	mu      sync.Mutex
	scoreCP atomic.Int64 // centipawns, from white's perspective
}

// NewWatcher wraps an already-constructed engine. The caller owns the
// engine's lifetime (NNUE loading, book/tablebase wiring, difficulty) —
// Watcher only ever calls its stateless Evaluate.
func NewWatcher(eng *engine.Engine) *Watcher {
	return &Watcher{eng: eng}
}

// Update re-evaluates pos and stores the result for subsequent Score calls.
func (w *Watcher) Update(pos *board.Position) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scoreCP.Store(int64(w.eng.Evaluate(pos)))
}

// Score reports the last-evaluated position's score in pawns from white's
// perspective, satisfying game.AnalysisState.
func (w *Watcher) Score() float64 {
	return float64(w.scoreCP.Load()) / 100.0
}

// boardPositioner is the sliver of game.LogicalBoard's API an Observe call
// needs; kept narrow so this package never imports internal/game and stays
// a pure collaborator of it, not a dependent.
type boardPositioner interface {
	Position() *board.Position
}

// Observe returns an Observer (in the sense of game.LogicalBoard's
// AddObserver) that re-evaluates lb's position whenever it reports a
// mutation, so Score always reflects the position after the most recent
// move, push, or pop. lb is typically a *game.LogicalBoard, accepted here
// as a narrow interface to avoid an import cycle back into internal/game.
func (w *Watcher) Observe(lb boardPositioner) *observer {
	return &observer{w: w, lb: lb}
}

type observer struct {
	w  *Watcher
	lb boardPositioner
}

// OnBoardChanged satisfies game.Observer.
func (o *observer) OnBoardChanged() {
	o.w.Update(o.lb.Position())
}
