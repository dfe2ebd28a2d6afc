package web

import (
    "context"
    "net/http"
    "sync"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/google/uuid"
    "github.com/gorilla/websocket"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

var wsUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const wsWriteWait = 5 * time.Second

type wsRequest struct {
    Action string `json:"action"`
    Board  int    `json:"board"`
    Cell   int    `json:"cell"`
}

type wsResponse struct {
    Action string         `json:"action"`
    State  *stateView     `json:"state,omitempty"`
    Result *domain.Result `json:"result,omitempty"`
    Error  string         `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
    mu   sync.Mutex
    conn *websocket.Conn
}

func (c *wsConn) send(v wsResponse) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    _ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
    return c.conn.WriteJSON(v)
}

func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    ctx, cancel := context.WithCancel(r.Context())
    defer cancel()

    updates, unsub, err := h.svc.Subscribe(ctx, id)
    if err != nil {
        h.fail(w, err)
        return
    }
    defer unsub()

    // The upgrade response is written by gorilla, so the cookie goes in its header
    hdr := http.Header{}
    pid := ""
    if c, err := r.Cookie(playerCookie); err == nil && c.Value != "" {
        pid = c.Value
    } else {
        pid = uuid.NewString()
        hdr.Add("Set-Cookie", (&http.Cookie{Name: playerCookie, Value: pid, Path: "/", HttpOnly: true}).String())
    }

    raw, err := wsUpgrader.Upgrade(w, r, hdr)
    if err != nil {
        h.log.Warn().Err(err).Str("game", id).Msg("websocket upgrade failed")
        return
    }
    defer raw.Close()
    conn := &wsConn{conn: raw}
    log := h.log.With().Str("game", id).Str("player", pid).Logger()

    seat, sess, err := h.svc.Join(ctx, id, pid)
    if err != nil {
        msg, _ := errorMessage(err)
        _ = conn.send(wsResponse{Action: "state", Error: msg})
        return
    }
    st := newStateView(*sess, seat)
    if err := conn.send(wsResponse{Action: "state", State: &st}); err != nil {
        return
    }
    log.Debug().Stringer("seat", seat).Msg("websocket connected")

    // Push the latest state whenever the session changes
    go func() {
        for range updates {
            latest, err := h.svc.Get(ctx, id)
            if err != nil {
                cancel()
                return
            }
            st := newStateView(*latest, latest.Seat(pid))
            if err := conn.send(wsResponse{Action: "update", State: &st}); err != nil {
                cancel()
                return
            }
        }
        // Subscription closed: session discarded or subscriber dropped
        _ = raw.Close()
    }()

    for {
        var req wsRequest
        if err := raw.ReadJSON(&req); err != nil {
            if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
                log.Debug().Err(err).Msg("websocket closed")
            }
            return
        }
        if err := conn.send(h.handleWS(ctx, id, pid, req)); err != nil {
            return
        }
    }
}

func (h *handlers) handleWS(ctx context.Context, id, pid string, req wsRequest) wsResponse {
    resp := wsResponse{Action: req.Action}
    var (
        sess *app.Session
        err  error
    )
    switch req.Action {
    case "state":
        sess, err = h.svc.Get(ctx, id)
    case "play":
        var res domain.Result
        sess, res, err = h.svc.Play(ctx, id, pid, req.Board, req.Cell)
        if err == nil {
            resp.Result = &res
        }
    case "rematch":
        sess, err = h.svc.Rematch(ctx, id, pid)
    case "exit":
        sess, err = h.svc.Exit(ctx, id, pid)
    default:
        resp.Error = "unknown action"
        return resp
    }
    if err != nil {
        resp.Error, _ = errorMessage(err)
        return resp
    }
    st := newStateView(*sess, sess.Seat(pid))
    resp.State = &st
    return resp
}
