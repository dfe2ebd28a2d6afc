package app

import (
    "context"
    "time"

    "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

// Score tallies finished games of a session across rematches.
type Score struct {
    X     int `json:"x"`
    O     int `json:"o"`
    Draws int `json:"draws"`
}

func (s *Score) record(o domain.Outcome) {
    switch {
    case o.WonBy(domain.X):
        s.X++
    case o.WonBy(domain.O):
        s.O++
    case o.Status == domain.Drawn:
        s.Draws++
    }
}

// Session is the state tracked per game: the engine snapshot plus seats.
type Session struct {
    ID      string           `json:"id"`
    Game    domain.GameState `json:"game"`
    X       string           `json:"x,omitempty"`
    O       string           `json:"o,omitempty"`
    Score   Score            `json:"score"`
    Created time.Time        `json:"created"`
    Updated time.Time        `json:"updated"`
}

// Seat returns the side held by playerID, or Empty for spectators.
func (s *Session) Seat(playerID string) domain.Mark {
    switch {
    case playerID == "":
        return domain.Empty
    case s.X == playerID:
        return domain.X
    case s.O == playerID:
        return domain.O
    default:
        return domain.Empty
    }
}

// Clone returns a copy sharing no board storage with s.
func (s *Session) Clone() *Session {
    cp := *s
    cp.Game.Macro.Boards = append([]domain.SubBoard(nil), s.Game.Macro.Boards...)
    return &cp
}

// Repository stores sessions between requests.
type Repository interface {
    Save(ctx context.Context, s *Session) error
    Get(ctx context.Context, id string) (*Session, error)
    Delete(ctx context.Context, id string) error
}
