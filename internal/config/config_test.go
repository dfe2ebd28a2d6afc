package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
    t.Helper()
    path := filepath.Join(t.TempDir(), "config.yml")
    require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
    return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
    require.NoError(t, err)

    assert.Equal(t, "info", cfg.LogLevel)
    assert.Equal(t, ":8080", cfg.HTTPAddr)
    assert.Equal(t, 15*time.Second, cfg.Heartbeat)
    assert.Equal(t, StorageMemory, cfg.Storage)
    assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
    assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestLoadFromFile(t *testing.T) {
    path := writeConfig(t, `
log-level: debug
http-addr: ":9090"
heartbeat: 5s
storage: redis
redis:
  host: cache
  port: "6380"
  db: 2
  ttl: 1h
`)

    cfg, err := Load(path)
    require.NoError(t, err)

    assert.Equal(t, "debug", cfg.LogLevel)
    assert.Equal(t, ":9090", cfg.HTTPAddr)
    assert.Equal(t, 5*time.Second, cfg.Heartbeat)
    assert.Equal(t, StorageRedis, cfg.Storage)
    assert.Equal(t, "cache:6380", cfg.Redis.Addr())
    assert.Equal(t, 2, cfg.Redis.DB)
    assert.Equal(t, time.Hour, cfg.Redis.TTL)
}

func TestEnvOverridesFile(t *testing.T) {
    path := writeConfig(t, "log-level: debug\n")
    t.Setenv("LOG_LEVEL", "warn")
    t.Setenv("REDIS_HOST", "redis.internal")

    cfg, err := Load(path)
    require.NoError(t, err)

    assert.Equal(t, "warn", cfg.LogLevel)
    assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr())
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
    path := writeConfig(t, "storage: postgres\n")

    _, err := Load(path)
    require.Error(t, err)

    assert.Panics(t, func() { MustLoad(path) })
}
