package domain

import (
    "errors"
    "fmt"
    "iter"
)

// Variant selects the rule set a game is played with.
type Variant string

const (
    // Ultimate is nine sub-boards with forced-board routing.
    Ultimate Variant = "ultimate"
    // Open is Ultimate without routing: any unresolved sub-board is playable.
    Open Variant = "open"
    // Classic is a single 3x3 board.
    Classic Variant = "classic"
)

// Unconstrained is the Forced value when no sub-board is imposed.
const Unconstrained = -1

// ParseVariant maps user input to a Variant; empty input selects Ultimate.
func ParseVariant(s string) (Variant, error) {
    switch v := Variant(s); v {
    case "":
        return Ultimate, nil
    case Ultimate, Open, Classic:
        return v, nil
    default:
        return "", fmt.Errorf("unknown variant %q", s)
    }
}

func (v Variant) valid() bool { return v == Ultimate || v == Open || v == Classic }

func (v Variant) boards() int {
    if v == Classic {
        return 1
    }
    return 9
}

func (v Variant) routed() bool { return v == Ultimate }

// Move addresses a cell within a sub-board.
type Move struct {
    Board int `json:"board"`
    Cell  int `json:"cell"`
}

// GameState is the full state of a match. Values returned by Engine.State
// are copies; changing them does not affect the engine.
type GameState struct {
    Variant Variant    `json:"variant"`
    Macro   MacroBoard `json:"macro"`
    Turn    Mark       `json:"turn"`
    Forced  int        `json:"forced"`
    Ended   bool       `json:"ended"`
    Moves   int        `json:"moves"`
}

// Terminal reports whether the game accepts no further moves.
func (s GameState) Terminal() bool { return s.Ended || s.Macro.Outcome.Resolved() }

// Allowed reports whether a move may currently target sub-board b.
func (s GameState) Allowed(b int) bool {
    if s.Terminal() || b < 0 || b >= len(s.Macro.Boards) {
        return false
    }
    if s.Macro.Boards[b].Outcome.Resolved() {
        return false
    }
    return s.Forced == Unconstrained || s.Forced == b
}

func (s GameState) clone() GameState {
    s.Macro = s.Macro.clone()
    return s
}

// Result describes what a successful move changed.
type Result struct {
    Move Move `json:"move"`
    Mark Mark `json:"mark"`
    // Board is the outcome of the sub-board that was played.
    Board         Outcome `json:"board"`
    BoardResolved bool    `json:"boardResolved"`
    // Game is the macro outcome after the move.
    Game         Outcome `json:"game"`
    GameResolved bool    `json:"gameResolved"`
    // Next is the side to move; meaningless once the game is resolved.
    Next   Mark `json:"next"`
    Forced int  `json:"forced"`
}

// Errors returned by engine operations.
var (
    ErrGameOver       = errors.New("game over")
    ErrOutOfRange     = errors.New("out of range")
    ErrSubBoardClosed = errors.New("sub-board closed")
    ErrCellOccupied   = errors.New("cell occupied")
    ErrWrongSubBoard  = errors.New("wrong sub-board")
    ErrInvalidState   = errors.New("invalid game state")
)

// Engine owns a GameState and is the only thing that mutates it.
// An Engine is not safe for concurrent use.
type Engine struct {
    state GameState
}

// New returns an engine with a fresh game of the given variant.
func New(v Variant) *Engine {
    e := &Engine{}
    e.Start(v)
    return e
}

// Start replaces the current state with a fresh game; X moves first.
// Unknown variants fall back to Ultimate.
func (e *Engine) Start(v Variant) {
    if !v.valid() {
        v = Ultimate
    }
    e.state = GameState{
        Variant: v,
        Macro:   MacroBoard{Boards: make([]SubBoard, v.boards())},
        Turn:    X,
        Forced:  Unconstrained,
    }
}

// State returns a copy of the current state.
func (e *Engine) State() GameState { return e.state.clone() }

// LegalMoves yields every currently playable move. The sequence reads the
// engine when iterated, so it can be ranged over again after further moves.
func (e *Engine) LegalMoves() iter.Seq[Move] {
    return func(yield func(Move) bool) {
        s := &e.state
        for b := range s.Macro.Boards {
            if !s.Allowed(b) {
                continue
            }
            for c, m := range s.Macro.Boards[b].Cells {
                if m == Empty && !yield(Move{Board: b, Cell: c}) {
                    return
                }
            }
        }
    }
}

// ApplyMove plays the current side at cell of sub-board board. On error the
// state is left untouched.
func (e *Engine) ApplyMove(board, cell int) (Result, error) {
    s := &e.state
    if s.Terminal() {
        return Result{}, ErrGameOver
    }
    if board < 0 || board >= len(s.Macro.Boards) || cell < 0 || cell > 8 {
        return Result{}, fmt.Errorf("%w: board %d, cell %d", ErrOutOfRange, board, cell)
    }
    sb := &s.Macro.Boards[board]
    if sb.Outcome.Resolved() {
        return Result{}, fmt.Errorf("%w: board %d is %s", ErrSubBoardClosed, board, sb.Outcome.Status)
    }
    if sb.Cells[cell] != Empty {
        return Result{}, ErrCellOccupied
    }
    if s.Forced != Unconstrained && board != s.Forced {
        return Result{}, fmt.Errorf("%w: must play board %d", ErrWrongSubBoard, s.Forced)
    }

    // Place the mark
    mark := s.Turn
    sb.Cells[cell] = mark
    s.Moves++
    res := Result{Move: Move{Board: board, Cell: cell}, Mark: mark}

    sb.evaluate()
    res.Board = sb.Outcome
    res.BoardResolved = sb.Outcome.Resolved()

    s.Macro.evaluate()
    res.Game = s.Macro.Outcome
    if s.Macro.Outcome.Resolved() {
        res.GameResolved = true
        res.Next = s.Turn
        res.Forced = s.Forced
        return res, nil
    }

    // Route the opponent to the sub-board matching the cell just played
    s.Forced = Unconstrained
    if s.Variant.routed() && !s.Macro.Boards[cell].Outcome.Resolved() {
        s.Forced = cell
    }
    s.Turn = mark.Other()

    res.Next = s.Turn
    res.Forced = s.Forced
    return res, nil
}

// EndSession marks the game terminal without a winner. Calling it again has
// no effect.
func (e *Engine) EndSession() { e.state.Ended = true }

// Restore rebuilds an engine from a previously captured state.
func Restore(s GameState) (*Engine, error) {
    if !s.Variant.valid() {
        return nil, fmt.Errorf("%w: variant %q", ErrInvalidState, s.Variant)
    }
    if len(s.Macro.Boards) != s.Variant.boards() {
        return nil, fmt.Errorf("%w: %d boards for %s", ErrInvalidState, len(s.Macro.Boards), s.Variant)
    }
    if s.Turn != X && s.Turn != O {
        return nil, fmt.Errorf("%w: turn %d", ErrInvalidState, s.Turn)
    }
    if s.Forced < Unconstrained || s.Forced >= len(s.Macro.Boards) {
        return nil, fmt.Errorf("%w: forced board %d", ErrInvalidState, s.Forced)
    }
    for i, b := range s.Macro.Boards {
        for _, c := range b.Cells {
            if c > O {
                return nil, fmt.Errorf("%w: board %d holds mark %d", ErrInvalidState, i, c)
            }
        }
    }
    return &Engine{state: s.clone()}, nil
}
