package web

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "slices"
    "strconv"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
    "github.com/rs/zerolog"
)

type handlers struct {
    svc       *app.Service
    tpl       *templates
    log       zerolog.Logger
    heartbeat time.Duration
}

func (h *handlers) renderBoard(s app.Session, errMsg string) []byte {
    return renderTemplate(h.tpl.board, newBoardView(s, errMsg))
}

// errorMessage maps service and engine errors to a message and status code.
func errorMessage(err error) (string, int) {
    switch {
    case errors.Is(err, app.ErrNotFound):
        return "Game not found", http.StatusNotFound
    case errors.Is(err, app.ErrNotYourTurn):
        return "Not your turn", http.StatusConflict
    case errors.Is(err, app.ErrNotAPlayer):
        return "You are a spectator", http.StatusForbidden
    case errors.Is(err, domain.ErrGameOver):
        return "Game is over", http.StatusConflict
    case errors.Is(err, domain.ErrOutOfRange):
        return "Move out of range", http.StatusBadRequest
    case errors.Is(err, domain.ErrSubBoardClosed):
        return "That board is already decided", http.StatusConflict
    case errors.Is(err, domain.ErrCellOccupied):
        return "Cell is occupied", http.StatusConflict
    case errors.Is(err, domain.ErrWrongSubBoard):
        return "You must play in the highlighted board", http.StatusConflict
    default:
        return "Something went wrong", http.StatusInternalServerError
    }
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(renderTemplate(h.tpl.index, nil))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
    _ = r.ParseForm()
    v, err := domain.ParseVariant(r.Form.Get("variant"))
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    gs, err := h.svc.CreateGame(r.Context(), v)
    if err != nil {
        h.log.Error().Err(err).Msg("create game")
        http.Error(w, "failed to create", http.StatusInternalServerError)
        return
    }
    http.Redirect(w, r, "/game/"+gs.ID+"/", http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    // ensure cookie and auto-claim seat
    pid := ensurePlayerCookie(w, r)
    seat, gs, err := h.svc.Join(r.Context(), id, pid)
    if err != nil {
        h.fail(w, err)
        return
    }
    data := struct {
        ID    string
        Seat  string
        Board boardView
    }{ID: gs.ID, Seat: seatText(seat), Board: newBoardView(*gs, "")}

    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(renderTemplate(h.tpl.game, data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := ensurePlayerCookie(w, r)
    _, gs, err := h.svc.Join(r.Context(), id, pid)
    if err != nil {
        h.fail(w, err)
        return
    }
    h.writeBoard(w, *gs, "")
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := ensurePlayerCookie(w, r)
    _ = r.ParseForm()
    board := formIndex(r, "b")
    cell := formIndex(r, "c")
    gs, _, err := h.svc.Play(r.Context(), id, pid, board, cell)
    h.respond(w, r, id, gs, err)
}

func (h *handlers) rematch(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    gs, err := h.svc.Rematch(r.Context(), id, ensurePlayerCookie(w, r))
    h.respond(w, r, id, gs, err)
}

func (h *handlers) exit(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    gs, err := h.svc.Exit(r.Context(), id, ensurePlayerCookie(w, r))
    h.respond(w, r, id, gs, err)
}

func (h *handlers) resetScore(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    gs, err := h.svc.ResetScore(r.Context(), id, ensurePlayerCookie(w, r))
    h.respond(w, r, id, gs, err)
}

func (h *handlers) discard(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    if err := h.svc.Discard(r.Context(), id, ensurePlayerCookie(w, r)); err != nil {
        msg, code := errorMessage(err)
        http.Error(w, msg, code)
        return
    }
    http.Redirect(w, r, "/", http.StatusSeeOther)
}

// stateView is the JSON form of a session as seen by one player.
type stateView struct {
    ID    string           `json:"id"`
    Seat  domain.Mark      `json:"seat"`
    Game  domain.GameState `json:"game"`
    Score app.Score        `json:"score"`
    Legal []domain.Move    `json:"legal"`
}

func newStateView(s app.Session, seat domain.Mark) stateView {
    v := stateView{ID: s.ID, Seat: seat, Game: s.Game, Score: s.Score, Legal: []domain.Move{}}
    if eng, err := domain.Restore(s.Game); err == nil {
        v.Legal = append(v.Legal, slices.Collect(eng.LegalMoves())...)
    }
    return v
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    gs, err := h.svc.Get(r.Context(), id)
    if err != nil {
        msg, code := errorMessage(err)
        writeJSON(w, code, map[string]string{"error": msg})
        return
    }
    var seat domain.Mark
    if c, err := r.Cookie(playerCookie); err == nil {
        seat = gs.Seat(c.Value)
    }
    writeJSON(w, http.StatusOK, newStateView(*gs, seat))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("X-Accel-Buffering", "no")
    // In tests or non-EventSource requests, just acknowledge headers and return
    if r.Header.Get("Accept") != "text/event-stream" {
        w.WriteHeader(http.StatusOK)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok {
        w.WriteHeader(http.StatusOK)
        return
    }
    ctx := r.Context()
    ch, unsub, err := h.svc.Subscribe(ctx, id)
    if err != nil {
        msg, code := errorMessage(err)
        http.Error(w, msg, code)
        return
    }
    defer unsub()
    // heartbeat ticker
    ticker := time.NewTicker(h.heartbeat)
    defer ticker.Stop()
    // Initial flush of headers
    w.WriteHeader(http.StatusOK)
    flusher.Flush()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            _, _ = io.WriteString(w, ": ping\n\n")
            flusher.Flush()
        case b, ok := <-ch:
            if !ok {
                return
            }
            writeEvent(w, "board", b)
            flusher.Flush()
        }
    }
}

// writeEvent emits one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, name string, payload []byte) {
    var sb strings.Builder
    sb.WriteString("event: " + name + "\n")
    for _, line := range strings.Split(string(payload), "\n") {
        sb.WriteString("data: " + line + "\n")
    }
    sb.WriteString("\n")
    _, _ = io.WriteString(w, sb.String())
}

// respond writes the board fragment after a mutation. Rejected requests get
// the current board with an alert; htmx only swaps 2xx responses.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, id string, gs *app.Session, err error) {
    if err == nil {
        h.writeBoard(w, *gs, "")
        return
    }
    msg, code := errorMessage(err)
    if code == http.StatusInternalServerError {
        h.log.Error().Err(err).Str("game", id).Msg("request failed")
    }
    latest, gerr := h.svc.Get(r.Context(), id)
    if gerr != nil {
        h.fail(w, gerr)
        return
    }
    h.writeBoard(w, *latest, msg)
}

func (h *handlers) writeBoard(w http.ResponseWriter, s app.Session, errMsg string) {
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write(h.renderBoard(s, errMsg))
}

func (h *handlers) fail(w http.ResponseWriter, err error) {
    msg, code := errorMessage(err)
    if code == http.StatusInternalServerError {
        h.log.Error().Err(err).Msg("request failed")
    }
    http.Error(w, msg, code)
}

// formIndex returns -1 for a missing or malformed index so the engine
// rejects it as out of range.
func formIndex(r *http.Request, key string) int {
    n, err := strconv.Atoi(r.Form.Get(key))
    if err != nil {
        return -1
    }
    return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}
