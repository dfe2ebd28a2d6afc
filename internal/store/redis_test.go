package store

import (
    "context"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
    t.Helper()
    mr := miniredis.RunT(t)
    client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
    require.NoError(t, err)
    t.Cleanup(func() { _ = client.Close() })
    return NewRedis(client, ttl), mr
}

func playedSession(t *testing.T) *app.Session {
    t.Helper()
    eng := domain.New(domain.Ultimate)
    for _, m := range []domain.Move{{Board: 4, Cell: 4}, {Board: 4, Cell: 0}, {Board: 0, Cell: 8}} {
        _, err := eng.ApplyMove(m.Board, m.Cell)
        require.NoError(t, err)
    }
    now := time.Now().UTC().Truncate(time.Second)
    return &app.Session{
        ID:      "game-1",
        Game:    eng.State(),
        X:       "p1",
        O:       "p2",
        Score:   app.Score{X: 2, O: 1, Draws: 1},
        Created: now,
        Updated: now,
    }
}

func TestRedisSaveAndGet(t *testing.T) {
    ctx := context.Background()
    repo, mr := newTestRedis(t, 0)

    // Given: a session with moves on the board
    sess := playedSession(t)

    // When: it is saved and loaded back
    require.NoError(t, repo.Save(ctx, sess))
    got, err := repo.Get(ctx, sess.ID)
    require.NoError(t, err)

    // Then: the snapshot survives the round trip and can drive an engine
    assert.True(t, mr.Exists("session:game-1"))
    assert.Equal(t, sess.Game, got.Game)
    assert.Equal(t, sess.Score, got.Score)
    assert.Equal(t, "p1", got.X)
    assert.True(t, sess.Created.Equal(got.Created))

    eng, err := domain.Restore(got.Game)
    require.NoError(t, err)
    _, err = eng.ApplyMove(8, 0)
    require.NoError(t, err)
}

func TestRedisGetMissing(t *testing.T) {
    repo, _ := newTestRedis(t, 0)

    _, err := repo.Get(context.Background(), "missing")

    assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestRedisTTL(t *testing.T) {
    ctx := context.Background()
    repo, mr := newTestRedis(t, time.Minute)
    sess := playedSession(t)
    require.NoError(t, repo.Save(ctx, sess))

    assert.Equal(t, time.Minute, mr.TTL("session:game-1"))

    // When: the key expires
    mr.FastForward(2 * time.Minute)

    // Then: the session is gone
    _, err := repo.Get(ctx, sess.ID)
    assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestRedisDelete(t *testing.T) {
    ctx := context.Background()
    repo, _ := newTestRedis(t, 0)
    sess := playedSession(t)
    require.NoError(t, repo.Save(ctx, sess))

    require.NoError(t, repo.Delete(ctx, sess.ID))

    _, err := repo.Get(ctx, sess.ID)
    assert.ErrorIs(t, err, app.ErrNotFound)
    assert.ErrorIs(t, repo.Delete(ctx, sess.ID), app.ErrNotFound)
}

func TestRedisCorruptValue(t *testing.T) {
    repo, mr := newTestRedis(t, 0)
    require.NoError(t, mr.Set("session:bad", "{not json"))

    _, err := repo.Get(context.Background(), "bad")

    require.Error(t, err)
    assert.NotErrorIs(t, err, app.ErrNotFound)
}

func TestServiceOnRedis(t *testing.T) {
    ctx := context.Background()
    repo, _ := newTestRedis(t, time.Hour)
    svc := app.NewService(app.WithRepository(repo))

    // Given: a seated game persisted in Redis
    sess, err := svc.CreateGame(ctx, domain.Ultimate)
    require.NoError(t, err)
    _, _, err = svc.Join(ctx, sess.ID, "p1")
    require.NoError(t, err)
    _, _, err = svc.Join(ctx, sess.ID, "p2")
    require.NoError(t, err)

    // When: X plays
    _, res, err := svc.Play(ctx, sess.ID, "p1", 2, 6)
    require.NoError(t, err)

    // Then: a fresh service over the same store sees the move and the routing
    other := app.NewService(app.WithRepository(repo))
    got, err := other.Get(ctx, sess.ID)
    require.NoError(t, err)
    assert.Equal(t, domain.X, got.Game.Macro.Boards[2].Cells[6])
    assert.Equal(t, 6, res.Forced)
    assert.Equal(t, 6, got.Game.Forced)
    assert.Equal(t, domain.O, got.Game.Turn)
}
