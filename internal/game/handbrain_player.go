package game

import (
	"fmt"
	"sync"

	"github.com/centaurcore/gamecore/internal/board"
	"github.com/centaurcore/gamecore/internal/uciclient"
)

// HandBrainMode selects which side of a Hand+Brain pairing the engine
// plays: NORMAL has the engine suggest a piece type for a human to move;
// REVERSE has a human pick the piece type and the engine choose the move.
type HandBrainMode int

const (
	HandBrainNormal HandBrainMode = iota
	HandBrainReverse
)

// HandBrainPhase is the per-turn sub-state machine layered over the usual
// READY/THINKING states.
type HandBrainPhase int

const (
	PhaseIdle HandBrainPhase = iota
	PhaseComputingSuggestion
	PhaseWaitingHumanMove
	PhaseWaitingPieceSelection
	PhaseComputingMove
	PhaseWaitingExecution
)

// BrainHintCallback displays the NORMAL-mode piece-type suggestion.
type BrainHintCallback func(color board.Color, pieceSymbol string)

// HandBrainPlayer is a hybrid Player: engine and human collaborate on each
// move (original_source/.../players/hand_brain.py).
type HandBrainPlayer struct {
	BasePlayer

	cfg  EngineConfig
	mode HandBrainMode

	mu               sync.Mutex
	client           *uciclient.Engine
	uciOptions       map[string]string
	phase            HandBrainPhase
	currentPos       *board.Position
	suggestedType    board.PieceType
	hasSuggestion    bool
	selectedType     board.PieceType
	hasSelection     bool
	selectionLiftSq  board.Square
	hasSelectionLift bool

	brainHintCallback BrainHintCallback
}

// NewHandBrainPlayer returns a HandBrainPlayer in the UNINITIALIZED state.
func NewHandBrainPlayer(cfg EngineConfig, mode HandBrainMode) *HandBrainPlayer {
	modeStr := "Normal"
	if mode == HandBrainReverse {
		modeStr = "Reverse"
	}
	hb := &HandBrainPlayer{
		BasePlayer: newBasePlayer(PlayerHuman, fmt.Sprintf("H+B %s (%s)", modeStr, cfg.EngineName), Capabilities{
			CanResign:            true,
			SupportsTakeback:     true,
			SupportsLateCastling: true,
		}),
		cfg:  cfg,
		mode: mode,
	}
	if mode == HandBrainReverse {
		hb.caps = Capabilities{CanResign: false, SupportsTakeback: true, SupportsLateCastling: true}
	}
	hb.doRequestMove = hb.requestMove
	hb.onMoveFormed = hb.moveFormed
	return hb
}

func (hb *HandBrainPlayer) SetBrainHintCallback(fn BrainHintCallback) { hb.brainHintCallback = fn }

func (hb *HandBrainPlayer) Start() error {
	switch hb.State() {
	case StateUninitialized, StateStopped:
	default:
		return fmt.Errorf("hand+brain %s: cannot start from state %s", hb.cfg.EngineName, hb.State())
	}
	hb.setState(StateInitializing)

	path, err := hb.resolveEnginePath()
	if err != nil {
		hb.setState(StateError)
		hb.reportError("engine_not_found")
		return err
	}
	options := loadUCIOptions(path+".uci", hb.cfg.EloSection)
	for k, v := range hb.cfg.ExtraOptions {
		options[k] = v
	}

	go func() {
		client, err := uciclient.Start(path)
		if err != nil {
			hb.setState(StateError)
			hb.reportError("engine_init_failed")
			return
		}
		if len(options) > 0 {
			_ = client.Configure(options)
		}
		_ = client.NewGame()

		hb.mu.Lock()
		hb.client = client
		hb.uciOptions = options
		hb.mu.Unlock()

		hb.setState(StateReady)
	}()
	return nil
}

func (hb *HandBrainPlayer) Stop() {
	hb.mu.Lock()
	client := hb.client
	hb.client = nil
	hb.mu.Unlock()
	if client != nil {
		_ = client.Quit()
	}
	hb.setState(StateStopped)
}

func (hb *HandBrainPlayer) resolveEnginePath() (string, error) {
	ep := EnginePlayer{cfg: hb.cfg}
	return ep.resolveEnginePath()
}

func (hb *HandBrainPlayer) requestMove(pos *board.Position) {
	hb.mu.Lock()
	hb.currentPos = pos.Copy()
	hb.mu.Unlock()

	if hb.mode == HandBrainNormal {
		hb.startNormalModeTurn()
	} else {
		hb.startReverseModeTurn()
	}
}

func (hb *HandBrainPlayer) startNormalModeTurn() {
	hb.mu.Lock()
	hb.hasSuggestion = false
	hb.phase = PhaseComputingSuggestion
	pos := hb.currentPos
	client := hb.client
	options := hb.uciOptions
	hb.mu.Unlock()

	hb.setState(StateThinking)

	if client == nil {
		hb.mu.Lock()
		hb.phase = PhaseWaitingHumanMove
		hb.mu.Unlock()
		hb.setState(StateReady)
		return
	}

	fen := pos.ToFEN()
	go func() {
		defer func() {
			if hb.State() == StateThinking {
				hb.setState(StateReady)
			}
		}()

		if len(options) > 0 {
			_ = client.Configure(options)
		}
		uciMove, err := client.BestMove(fen, nil, hb.cfg.TimeLimit)
		hb.mu.Lock()
		defer hb.mu.Unlock()
		if err != nil || uciMove == "" || uciMove == "0000" {
			hb.phase = PhaseWaitingHumanMove
			return
		}
		m, err := uciclient.ParseUCIMove(pos, uciMove)
		if err != nil {
			hb.phase = PhaseWaitingHumanMove
			return
		}
		piece := pos.PieceAt(m.From())
		if piece == board.NoPiece {
			hb.phase = PhaseWaitingHumanMove
			return
		}
		hb.suggestedType = piece.Type()
		hb.hasSuggestion = true
		hb.phase = PhaseWaitingHumanMove

		if hb.brainHintCallback != nil {
			hb.brainHintCallback(pos.SideToMove, pieceSymbolUpper(piece.Type()))
		}
	}()
}

func (hb *HandBrainPlayer) startReverseModeTurn() {
	hb.mu.Lock()
	hb.hasPendingMove = false
	hb.hasSelection = false
	hb.hasSelectionLift = false
	hb.phase = PhaseWaitingPieceSelection
	hb.mu.Unlock()
	hb.setState(StateThinking)
}

// OnPieceEvent delegates to the base lift/place logic only in the phases
// where that logic applies; REVERSE-mode piece-type selection is handled
// separately.
func (hb *HandBrainPlayer) OnPieceEvent(eventType PieceEventType, sq board.Square, pos *board.Position) {
	hb.mu.Lock()
	phase := hb.phase
	hb.mu.Unlock()

	if hb.mode == HandBrainNormal {
		if phase == PhaseComputingSuggestion || phase == PhaseWaitingHumanMove {
			hb.BasePlayer.OnPieceEvent(eventType, sq, pos)
		}
		return
	}

	switch phase {
	case PhaseWaitingPieceSelection:
		hb.handleReversePieceSelection(eventType, sq, pos)
	case PhaseWaitingExecution:
		hb.BasePlayer.OnPieceEvent(eventType, sq, pos)
	}
}

func (hb *HandBrainPlayer) handleReversePieceSelection(eventType PieceEventType, sq board.Square, pos *board.Position) {
	if eventType == EventLift {
		piece := pos.PieceAt(sq)
		if piece == board.NoPiece || piece.Color() != pos.SideToMove {
			return
		}
		hb.mu.Lock()
		hb.selectionLiftSq = sq
		hb.hasSelectionLift = true
		hb.mu.Unlock()
		return
	}

	hb.mu.Lock()
	liftSq, hasLift := hb.selectionLiftSq, hb.hasSelectionLift
	hb.mu.Unlock()
	if !hasLift {
		return
	}
	if sq != liftSq {
		hb.mu.Lock()
		hb.hasSelectionLift = false
		hb.mu.Unlock()
		return
	}

	piece := pos.PieceAt(sq)
	if piece == board.NoPiece {
		hb.mu.Lock()
		hb.hasSelectionLift = false
		hb.mu.Unlock()
		return
	}
	hb.mu.Lock()
	hb.selectedType = piece.Type()
	hb.hasSelection = true
	hb.mu.Unlock()
	hb.computeConstrainedMove(piece.Type())
}

func (hb *HandBrainPlayer) computeConstrainedMove(pieceType board.PieceType) {
	hb.mu.Lock()
	hb.phase = PhaseComputingMove
	pos := hb.currentPos
	client := hb.client
	options := hb.uciOptions
	hb.mu.Unlock()

	legal := legalMovesForPieceType(pos, pieceType)
	if len(legal) == 0 {
		hb.mu.Lock()
		hb.phase = PhaseWaitingPieceSelection
		hb.hasSelectionLift = false
		hb.mu.Unlock()
		return
	}
	if len(legal) == 1 {
		hb.setComputedPendingMove(legal[0])
		return
	}
	if client == nil {
		hb.setComputedPendingMove(legal[0])
		return
	}

	fen := pos.ToFEN()
	searchMoves := make([]string, len(legal))
	for i, m := range legal {
		searchMoves[i] = m.String()
	}

	go func() {
		if len(options) > 0 {
			_ = client.Configure(options)
		}
		uciMove, err := client.BestMoveConstrained(fen, nil, searchMoves, hb.cfg.TimeLimit)
		if err != nil || uciMove == "" || uciMove == "0000" {
			hb.mu.Lock()
			hb.phase = PhaseWaitingPieceSelection
			hb.mu.Unlock()
			return
		}
		m, err := uciclient.ParseUCIMove(pos, uciMove)
		if err != nil {
			hb.mu.Lock()
			hb.phase = PhaseWaitingPieceSelection
			hb.mu.Unlock()
			return
		}
		hb.setComputedPendingMove(m)
	}()
}

func (hb *HandBrainPlayer) setComputedPendingMove(m board.Move) {
	hb.mu.Lock()
	hb.phase = PhaseWaitingExecution
	hb.liftedSquares = nil
	hb.mu.Unlock()
	hb.setPendingMove(m)
}

func (hb *HandBrainPlayer) moveFormed(formed board.Move, pos *board.Position) {
	if hb.mode == HandBrainNormal {
		hb.handleNormalModeMove(formed, pos)
		return
	}
	hb.handleReverseModeExecution(formed)
}

func (hb *HandBrainPlayer) handleNormalModeMove(formed board.Move, pos *board.Position) {
	hb.mu.Lock()
	current := hb.currentPos
	suggested, has := hb.suggestedType, hb.hasSuggestion
	hb.mu.Unlock()

	if current == nil {
		hb.submitMove(formed)
		return
	}
	movedPiece := current.PieceAt(formed.From())
	if movedPiece == board.NoPiece {
		hb.submitMove(formed)
		return
	}
	if has && movedPiece.Type() != suggested {
		hb.reportError("wrong_piece_type")
		return
	}
	hb.submitMove(formed)
}

func (hb *HandBrainPlayer) handleReverseModeExecution(formed board.Move) {
	pending, has := hb.PendingMove()
	if !has {
		hb.reportError("move_mismatch")
		return
	}
	if formed.From() == formed.To() {
		if formed.To() == pending.To() {
			hb.submitMove(pending)
		} else {
			hb.reportError("move_mismatch")
		}
		return
	}
	if formed.From() == pending.From() && formed.To() == pending.To() {
		hb.submitMove(pending)
		return
	}
	hb.reportError("move_mismatch")
}

func (hb *HandBrainPlayer) OnMoveMade(m board.Move, pos *board.Position) {
	hb.mu.Lock()
	hb.hasPendingMove = false
	hb.hasSuggestion = false
	hb.hasSelection = false
	hb.phase = PhaseIdle
	hb.liftedSquares = nil
	hb.mu.Unlock()
	if hb.State() == StateThinking {
		hb.setState(StateReady)
	}
}

func (hb *HandBrainPlayer) OnNewGame() {
	hb.mu.Lock()
	hb.hasPendingMove = false
	hb.hasSuggestion = false
	hb.hasSelection = false
	hb.phase = PhaseIdle
	hb.currentPos = nil
	hb.liftedSquares = nil
	hb.mu.Unlock()
}

func (hb *HandBrainPlayer) OnTakeback(pos *board.Position) {
	hb.mu.Lock()
	hb.hasPendingMove = false
	hb.hasSuggestion = false
	hb.hasSelection = false
	hb.phase = PhaseIdle
	hb.mu.Unlock()
}

func (hb *HandBrainPlayer) GetInfo() map[string]string {
	info := hb.BasePlayer.GetInfo()
	modeStr := "Normal"
	if hb.mode == HandBrainReverse {
		modeStr = "Reverse"
	}
	info["engine"] = hb.cfg.EngineName
	info["elo"] = hb.cfg.EloSection
	info["mode"] = modeStr
	info["description"] = fmt.Sprintf("H+B %s (%s @ %s)", modeStr, hb.cfg.EngineName, hb.cfg.EloSection)
	return info
}

func legalMovesForPieceType(pos *board.Position, pieceType board.PieceType) []board.Move {
	var matches []board.Move
	for _, m := range pos.GenerateLegalMoves().Slice() {
		piece := pos.PieceAt(m.From())
		if piece != board.NoPiece && piece.Type() == pieceType {
			matches = append(matches, m)
		}
	}
	return matches
}

func pieceSymbolUpper(pt board.PieceType) string {
	switch pt {
	case board.Pawn:
		return "P"
	case board.Knight:
		return "N"
	case board.Bishop:
		return "B"
	case board.Rook:
		return "R"
	case board.Queen:
		return "Q"
	case board.King:
		return "K"
	default:
		return "?"
	}
}
