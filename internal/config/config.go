package config

import (
    "errors"
    "fmt"
    "io/fs"
    "net"
    "os"
    "time"

    "github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
    LogLevel  string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
    HTTPAddr  string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
    Heartbeat time.Duration `yaml:"heartbeat" env:"SSE_HEARTBEAT" env-default:"15s"`
    Storage   string        `yaml:"storage" env:"STORAGE" env-default:"memory"`
    Redis     Redis         `yaml:"redis"`
}

type Redis struct {
    Host     string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
    Port     string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
    Password string        `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
    DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
    TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"24h"`
}

// Storage kinds.
const (
    StorageMemory = "memory"
    StorageRedis  = "redis"
)

// Load reads the YAML file at path; environment variables override it. When
// the file does not exist only the environment and defaults are used.
func Load(path string) (*Config, error) {
    cfg := &Config{}

    if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
        if err := cleanenv.ReadEnv(cfg); err != nil {
            return nil, fmt.Errorf("unable to read environment: %w", err)
        }
    } else if err := cleanenv.ReadConfig(path, cfg); err != nil {
        return nil, fmt.Errorf("unable to load config file: %w", err)
    }

    if cfg.Storage != StorageMemory && cfg.Storage != StorageRedis {
        return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
    }
    return cfg, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}

func (that *Redis) Addr() string {
    return net.JoinHostPort(that.Host, that.Port)
}
