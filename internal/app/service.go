package app

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
    "github.com/rs/zerolog"
)

// Errors exposed by the service layer.
var (
    ErrNotFound    = errors.New("game not found")
    ErrNotYourTurn = errors.New("not your turn")
    ErrNotAPlayer  = errors.New("not a player")
)

type subscriber struct {
    mu     sync.Mutex
    ch     chan []byte
    closed bool
}

func (s *subscriber) close() {
    s.mu.Lock()
    defer s.mu.Unlock()
    if !s.closed {
        s.closed = true
        close(s.ch)
    }
}

// offer delivers b without blocking; false means the buffer was full.
func (s *subscriber) offer(b []byte) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.closed {
        return true
    }
    select {
    case s.ch <- b:
        return true
    default:
        return false
    }
}

// Service manages sessions and subscribers. Every session gets its own
// engine, rebuilt from the stored snapshot for each operation.
type Service struct {
    mu     sync.Mutex
    repo   Repository
    subs   map[string]map[*subscriber]struct{}
    render func(Session) []byte
    log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRepository replaces the default in-memory repository.
func WithRepository(r Repository) Option { return func(s *Service) { s.repo = r } }

// WithRenderer sets the function encoding broadcast payloads.
func WithRenderer(fn func(Session) []byte) Option {
    return func(s *Service) { s.SetRenderer(fn) }
}

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

func nopRender(Session) []byte { return nil }

// NewService creates a service backed by memory unless configured otherwise.
func NewService(opts ...Option) *Service {
    s := &Service{
        repo:   NewMemoryRepository(),
        subs:   make(map[string]map[*subscriber]struct{}),
        render: nopRender,
        log:    zerolog.Nop(),
    }
    for _, o := range opts {
        o(s)
    }
    return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(Session) []byte) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if renderer == nil {
        s.render = nopRender
        return
    }
    s.render = renderer
}

// CreateGame creates and registers a new session.
func (s *Service) CreateGame(ctx context.Context, v domain.Variant) (*Session, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := time.Now()
    sess := &Session{
        ID:      uuid.NewString(),
        Game:    domain.New(v).State(),
        Created: now,
        Updated: now,
    }
    if err := s.repo.Save(ctx, sess); err != nil {
        return nil, fmt.Errorf("save game: %w", err)
    }
    s.log.Info().Str("game", sess.ID).Str("variant", string(sess.Game.Variant)).Msg("game created")
    return sess.Clone(), nil
}

// Get returns a copy of the session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.repo.Get(ctx, id)
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(ctx context.Context, id, playerID string) (domain.Mark, *Session, error) {
    var side domain.Mark
    sess, err := s.mutate(ctx, id, func(sess *Session) error {
        if side = sess.Seat(playerID); side != domain.Empty || playerID == "" {
            return nil
        }
        if sess.X == "" {
            sess.X = playerID
            side = domain.X
        } else if sess.O == "" {
            sess.O = playerID
            side = domain.O
        }
        if side != domain.Empty {
            s.log.Info().Str("game", id).Str("player", playerID).Stringer("side", side).Msg("seat claimed")
        }
        return nil
    })
    if err != nil {
        return domain.Empty, nil, err
    }
    return side, sess, nil
}

// Play validates seat and turn, applies a move and broadcasts the result.
func (s *Service) Play(ctx context.Context, id, playerID string, board, cell int) (*Session, domain.Result, error) {
    var res domain.Result
    sess, err := s.mutate(ctx, id, func(sess *Session) error {
        eng, err := domain.Restore(sess.Game)
        if err != nil {
            return err
        }
        seat := sess.Seat(playerID)
        if seat == domain.Empty {
            return ErrNotAPlayer
        }
        if !sess.Game.Terminal() && seat != sess.Game.Turn {
            return ErrNotYourTurn
        }
        if res, err = eng.ApplyMove(board, cell); err != nil {
            return err
        }
        sess.Game = eng.State()
        if res.GameResolved {
            sess.Score.record(res.Game)
            s.log.Info().Str("game", id).Stringer("status", res.Game.Status).Stringer("winner", res.Game.Winner).Msg("game resolved")
        }
        return nil
    })
    if err != nil {
        return nil, domain.Result{}, err
    }
    return sess, res, nil
}

// Rematch starts a fresh game of the same variant; the score is kept.
func (s *Service) Rematch(ctx context.Context, id, playerID string) (*Session, error) {
    return s.mutate(ctx, id, func(sess *Session) error {
        if sess.Seat(playerID) == domain.Empty {
            return ErrNotAPlayer
        }
        sess.Game = domain.New(sess.Game.Variant).State()
        return nil
    })
}

// Exit ends the current game without a winner.
func (s *Service) Exit(ctx context.Context, id, playerID string) (*Session, error) {
    return s.mutate(ctx, id, func(sess *Session) error {
        if sess.Seat(playerID) == domain.Empty {
            return ErrNotAPlayer
        }
        eng, err := domain.Restore(sess.Game)
        if err != nil {
            return err
        }
        eng.EndSession()
        sess.Game = eng.State()
        s.log.Info().Str("game", id).Str("player", playerID).Msg("session ended")
        return nil
    })
}

// ResetScore zeroes the session tally.
func (s *Service) ResetScore(ctx context.Context, id, playerID string) (*Session, error) {
    return s.mutate(ctx, id, func(sess *Session) error {
        if sess.Seat(playerID) == domain.Empty {
            return ErrNotAPlayer
        }
        sess.Score = Score{}
        return nil
    })
}

// Discard removes the session and closes its subscribers.
func (s *Service) Discard(ctx context.Context, id, playerID string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess, err := s.repo.Get(ctx, id)
    if err != nil {
        return err
    }
    if sess.Seat(playerID) == domain.Empty {
        return ErrNotAPlayer
    }
    if err := s.repo.Delete(ctx, id); err != nil {
        return fmt.Errorf("delete game: %w", err)
    }
    for sub := range s.subs[id] {
        sub.close()
    }
    delete(s.subs, id)
    s.log.Info().Str("game", id).Msg("game discarded")
    return nil
}

// mutate loads a session, applies fn, saves and fans the rendered result out
// to subscribers. Nothing is saved when fn fails.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
    var toDrop []*subscriber

    s.mu.Lock()
    sess, err := s.repo.Get(ctx, id)
    if err != nil {
        s.mu.Unlock()
        return nil, err
    }
    if err := fn(sess); err != nil {
        s.mu.Unlock()
        return nil, err
    }
    sess.Updated = time.Now()
    if err := s.repo.Save(ctx, sess); err != nil {
        s.mu.Unlock()
        return nil, fmt.Errorf("save game: %w", err)
    }

    // Snapshot state and subscribers
    cp := sess.Clone()
    subs := s.copySubsLocked(id)
    payload := s.render(*cp)
    s.mu.Unlock()

    // Fan-out; drop slow subscribers by closing and marking for deletion
    for sub := range subs {
        if !sub.offer(payload) {
            sub.close()
            toDrop = append(toDrop, sub)
        }
    }
    if len(toDrop) > 0 {
        s.mu.Lock()
        for _, sub := range toDrop {
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
            }
        }
        s.mu.Unlock()
        s.log.Warn().Str("game", id).Int("dropped", len(toDrop)).Msg("slow subscribers dropped")
    }
    return cp, nil
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, err := s.repo.Get(ctx, id); err != nil {
        return nil, nil, err
    }
    set := s.subs[id]
    if set == nil {
        set = make(map[*subscriber]struct{})
        s.subs[id] = set
    }
    sub := &subscriber{ch: make(chan []byte, 1)}
    set[sub] = struct{}{}

    unsubOnce := &sync.Once{}
    unsub := func() {
        unsubOnce.Do(func() {
            s.mu.Lock()
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
            }
            s.mu.Unlock()
            sub.close()
        })
    }
    go func() {
        <-ctx.Done()
        unsub()
    }()
    return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
    out := make(map[*subscriber]struct{})
    if set, ok := s.subs[id]; ok {
        for k := range set {
            out[k] = struct{}{}
        }
    }
    return out
}
