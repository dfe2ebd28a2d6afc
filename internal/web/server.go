package web

import (
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
    "github.com/rs/zerolog"
)

const defaultHeartbeat = 15 * time.Second

// Option configures the HTTP server.
type Option func(*handlers)

func WithLogger(l zerolog.Logger) Option { return func(h *handlers) { h.log = l } }

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
    return func(h *handlers) {
        if d > 0 {
            h.heartbeat = d
        }
    }
}

// NewServer wires routes and returns an http.Handler. It installs the board
// fragment renderer on s so SSE subscribers receive HTML.
func NewServer(s *app.Service, opts ...Option) http.Handler {
    h := &handlers{svc: s, tpl: loadTemplates(), log: zerolog.Nop(), heartbeat: defaultHeartbeat}
    for _, o := range opts {
        o(h)
    }
    s.SetRenderer(func(sess app.Session) []byte { return h.renderBoard(sess, "") })

    r := chi.NewRouter()
    r.Use(middleware.Recoverer)
    r.Use(requestLogger(h.log))
    r.Get("/", h.index)
    r.Post("/game", h.create)
    r.Route("/game/{id}", func(r chi.Router) {
        r.Get("/", h.view)
        r.Post("/join", h.join)
        r.Post("/play", h.play)
        r.Post("/rematch", h.rematch)
        r.Post("/exit", h.exit)
        r.Post("/score/reset", h.resetScore)
        r.Post("/discard", h.discard)
        r.Get("/state", h.state)
        r.Get("/events", h.events)
        r.Get("/ws", h.ws)
    })
    return r
}

// requestLogger writes one line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            next.ServeHTTP(ww, r)
            log.Info().
                Str("method", r.Method).
                Str("path", r.URL.Path).
                Int("status", ww.Status()).
                Int("bytes", ww.BytesWritten()).
                Dur("duration", time.Since(start)).
                Msg("request")
        })
    }
}
