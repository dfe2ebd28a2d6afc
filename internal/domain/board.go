package domain

import (
    "errors"
    "fmt"
)

// Mark represents the content of a single cell.
type Mark uint8

const (
    Empty Mark = iota
    X
    O
)

var ErrInvalidMark = errors.New("invalid mark")

func (m Mark) String() string {
    switch m {
    case X:
        return "X"
    case O:
        return "O"
    default:
        return ""
    }
}

// Other returns the opposing side; Empty has no opponent.
func (m Mark) Other() Mark {
    switch m {
    case X:
        return O
    case O:
        return X
    default:
        return Empty
    }
}

func (m Mark) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mark) UnmarshalText(b []byte) error {
    switch string(b) {
    case "":
        *m = Empty
    case "X":
        *m = X
    case "O":
        *m = O
    default:
        return fmt.Errorf("%w: %q", ErrInvalidMark, b)
    }
    return nil
}

// Status is the resolution state of a sub-board or of the whole game.
type Status uint8

const (
    Unresolved Status = iota
    Won
    Drawn
)

func (s Status) String() string {
    switch s {
    case Won:
        return "won"
    case Drawn:
        return "drawn"
    default:
        return "unresolved"
    }
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
    switch string(b) {
    case "unresolved", "":
        *s = Unresolved
    case "won":
        *s = Won
    case "drawn":
        *s = Drawn
    default:
        return fmt.Errorf("unknown status %q", b)
    }
    return nil
}

// Line is a triple of row-major indexes on a 3x3 grid.
type Line [3]int

// Outcome describes how a board was resolved. Winner and Line are only
// meaningful when Status is Won.
type Outcome struct {
    Status Status `json:"status"`
    Winner Mark   `json:"winner,omitempty"`
    Line   Line   `json:"line"`
}

func (o Outcome) Resolved() bool { return o.Status != Unresolved }

func (o Outcome) WonBy(m Mark) bool { return o.Status == Won && o.Winner == m && m != Empty }

var winLines = [8]Line{
    // rows
    {0, 1, 2}, {3, 4, 5}, {6, 7, 8},
    // cols
    {0, 3, 6}, {1, 4, 7}, {2, 5, 8},
    // diags
    {0, 4, 8}, {2, 4, 6},
}

// WinLines returns the eight lines shared by sub-board and macro evaluation.
func WinLines() [8]Line { return winLines }

// findLine reports the first line holding three equal non-empty marks.
func findLine(g [9]Mark) (Mark, Line, bool) {
    for _, ln := range winLines {
        m := g[ln[0]]
        if m != Empty && g[ln[1]] == m && g[ln[2]] == m {
            return m, ln, true
        }
    }
    return Empty, Line{}, false
}

// SubBoard is a single 3x3 grid.
type SubBoard struct {
    Cells   [9]Mark `json:"cells"`
    Outcome Outcome `json:"outcome"`
}

func (b *SubBoard) full() bool {
    for _, c := range b.Cells {
        if c == Empty {
            return false
        }
    }
    return true
}

func (b *SubBoard) evaluate() {
    if m, ln, ok := findLine(b.Cells); ok {
        b.Outcome = Outcome{Status: Won, Winner: m, Line: ln}
        return
    }
    if b.full() {
        b.Outcome = Outcome{Status: Drawn}
    }
}

// MacroBoard holds the sub-boards, 9 for the ultimate variants and a single
// one for classic play, indexed the same way as cells.
type MacroBoard struct {
    Boards  []SubBoard `json:"boards"`
    Outcome Outcome    `json:"outcome"`
}

// winners projects sub-board outcomes onto a grid of marks. Drawn boards
// stay Empty so they never complete a line.
func (mb *MacroBoard) winners() [9]Mark {
    var g [9]Mark
    for i, b := range mb.Boards {
        if b.Outcome.Status == Won {
            g[i] = b.Outcome.Winner
        }
    }
    return g
}

func (mb *MacroBoard) evaluate() {
    if len(mb.Boards) == 1 {
        mb.Outcome = mb.Boards[0].Outcome
        return
    }
    if m, ln, ok := findLine(mb.winners()); ok {
        mb.Outcome = Outcome{Status: Won, Winner: m, Line: ln}
        return
    }
    for _, b := range mb.Boards {
        if !b.Outcome.Resolved() {
            return
        }
    }
    mb.Outcome = Outcome{Status: Drawn}
}

func (mb MacroBoard) clone() MacroBoard {
    boards := make([]SubBoard, len(mb.Boards))
    copy(boards, mb.Boards)
    return MacroBoard{Boards: boards, Outcome: mb.Outcome}
}
