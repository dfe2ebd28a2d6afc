package store

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
    "github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// NewRedisClient connects to Redis and checks the connection with a ping.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
    conn := redis.NewClient(&redis.Options{
        Addr:     addr,
        Password: password,
        DB:       db,
    })

    if err := conn.Ping(ctx).Err(); err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("failed to connect to Redis: %w", err)
    }

    return conn, nil
}

// Redis keeps session snapshots as JSON values. A zero ttl keeps them forever.
type Redis struct {
    client *redis.Client
    ttl    time.Duration
}

var _ app.Repository = (*Redis)(nil)

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
    return &Redis{client: client, ttl: ttl}
}

// Save - stores the session, refreshing its expiry.
func (r *Redis) Save(ctx context.Context, s *app.Session) error {
    data, err := json.Marshal(s)
    if err != nil {
        return fmt.Errorf("failed to marshal session: %w", err)
    }

    if err := r.client.Set(ctx, keyPrefix+s.ID, data, r.ttl).Err(); err != nil {
        return fmt.Errorf("failed to save session in Redis: %w", err)
    }

    return nil
}

// Get - loads a session; app.ErrNotFound when the key is absent or expired.
func (r *Redis) Get(ctx context.Context, id string) (*app.Session, error) {
    val, err := r.client.Get(ctx, keyPrefix+id).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, app.ErrNotFound
    } else if err != nil {
        return nil, fmt.Errorf("failed to get session from Redis: %w", err)
    }

    var s app.Session
    if err := json.Unmarshal(val, &s); err != nil {
        return nil, fmt.Errorf("failed to unmarshal session: %w", err)
    }

    return &s, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
    n, err := r.client.Del(ctx, keyPrefix+id).Result()
    if err != nil {
        return fmt.Errorf("failed to delete session from Redis: %w", err)
    }
    if n == 0 {
        return app.ErrNotFound
    }
    return nil
}
