package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "net"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/config"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/store"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/web"
    "github.com/rs/zerolog"
)

func main() {
    path := flag.String("config", "config.yml", "path to the YAML config file")
    flag.Parse()

    conf := config.MustLoad(*path)
    logger := initLogger(conf)

    if err := run(logger, conf); err != nil {
        logger.Fatal().Err(err).Msg("server failed")
    }
}

func initLogger(conf *config.Config) zerolog.Logger {
    level, err := zerolog.ParseLevel(conf.LogLevel)
    if err != nil || level == zerolog.NoLevel {
        level = zerolog.InfoLevel
    }
    return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func run(logger zerolog.Logger, conf *config.Config) error {
    log := logger.With().Str("component", "app").Logger()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    opts := []app.Option{app.WithLogger(logger.With().Str("component", "service").Logger())}
    if conf.Storage == config.StorageRedis {
        client, err := store.NewRedisClient(ctx, conf.Redis.Addr(), conf.Redis.Password, conf.Redis.DB)
        if err != nil {
            return fmt.Errorf("could not connect to redis storage: %w", err)
        }
        defer func() {
            if err := client.Close(); err != nil {
                log.Error().Err(err).Msg("could not close redis storage")
            }
        }()
        opts = append(opts, app.WithRepository(store.NewRedis(client, conf.Redis.TTL)))
    }
    svc := app.NewService(opts...)

    srv := &http.Server{
        Addr: conf.HTTPAddr,
        Handler: web.NewServer(svc,
            web.WithLogger(logger.With().Str("component", "http").Logger()),
            web.WithHeartbeat(conf.Heartbeat),
        ),
        ReadHeaderTimeout: 5 * time.Second,
        // Long-lived SSE and websocket handlers end when the signal arrives
        BaseContext: func(net.Listener) context.Context { return ctx },
    }

    errCh := make(chan error, 1)
    go func() {
        log.Info().Str("addr", conf.HTTPAddr).Str("storage", conf.Storage).Msg("starting HTTP server")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
        close(errCh)
    }()

    select {
    case err := <-errCh:
        if err != nil {
            return fmt.Errorf("HTTP server error: %w", err)
        }
        return nil
    case <-ctx.Done():
        log.Info().Msg("received signal, shutting down")
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
        return fmt.Errorf("shutdown: %w", err)
    }
    return nil
}
