package web

import (
    "bytes"
    "fmt"
    "html/template"
    "net/http"

    "github.com/google/uuid"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
    "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

type templates struct {
    game  *template.Template
    board *template.Template
    index *template.Template
}

func loadTemplates() *templates {
    base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Ultimate Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.macro{display:grid;grid-template-columns:repeat(3,auto);gap:8px;width:max-content}
.sub{display:grid;grid-template-columns:repeat(3,2.2em);gap:2px;padding:4px;border:2px solid #ccc}
.sub.allowed{border-color:#2a7}
.sub.won-X{background:#fde}.sub.won-O{background:#def}.sub.drawn{background:#eee}
.sub button{width:2.2em;height:2.2em}
.alert{color:#b00}
</style>
</head><body>{{template "content" .}}</body></html>`))
    // Define the board template within the same set so game can include it
    template.Must(base.New("board").Parse(boardTemplate))
    index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Ultimate Tic-Tac-Toe</h1>
<form action="/game" method="post">
  <select name="variant">
    <option value="ultimate">Ultimate</option>
    <option value="open">Ultimate, free choice of board</option>
    <option value="classic">Classic 3x3</option>
  </select>
  <button>Create</button>
</form>`))
    game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<p>You are {{.Seat}}.</p>
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div id="live" sse-swap="board">{{template "board" .Board}}</div>
</div>
<form action="/game/{{.ID}}/discard" method="post"><button>Leave and discard</button></form>`))
    // Standalone board template used for fragment rendering
    board := template.Must(template.New("board_only").Parse(boardTemplate))
    return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, data any) []byte {
    var buf bytes.Buffer
    if err := t.Execute(&buf, data); err != nil {
        return []byte(template.HTMLEscapeString(err.Error()))
    }
    return buf.Bytes()
}

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <p class="status">{{.Status}}</p>
  <div class="macro">
  {{range $sb := .Boards}}
    <div class="sub {{$sb.Class}}" data-board="{{$sb.Index}}">
    {{range $c := $sb.Cells}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="b" value="{{$sb.Index}}">
        <input type="hidden" name="c" value="{{$c.Index}}">
        <button type="submit"{{if not $c.Playable}} disabled{{end}}>{{$c.Symbol}}</button>
      </form>
    {{end}}
    </div>
  {{end}}
  </div>
  <p class="score">X {{.Score.X}} : {{.Score.O}} O, draws {{.Score.Draws}}</p>
  <form hx-post="/game/{{.ID}}/rematch" hx-target="#board" hx-swap="outerHTML"><button>Rematch</button></form>
  <form hx-post="/game/{{.ID}}/exit" hx-target="#board" hx-swap="outerHTML"><button>Exit</button></form>
  <form hx-post="/game/{{.ID}}/score/reset" hx-target="#board" hx-swap="outerHTML"><button>Reset score</button></form>
</div>
`

type cellView struct {
    Index    int
    Symbol   string
    Playable bool
}

type subBoardView struct {
    Index int
    Class string
    Cells [9]cellView
}

type boardView struct {
    ID     string
    Status string
    Error  string
    Score  app.Score
    Boards []subBoardView
}

func newBoardView(s app.Session, errMsg string) boardView {
    g := s.Game
    v := boardView{ID: s.ID, Status: statusText(g), Error: errMsg, Score: s.Score}
    for b, sb := range g.Macro.Boards {
        allowed := g.Allowed(b)
        sv := subBoardView{Index: b}
        switch {
        case sb.Outcome.Status == domain.Won:
            sv.Class = "won-" + sb.Outcome.Winner.String()
        case sb.Outcome.Status == domain.Drawn:
            sv.Class = "drawn"
        case allowed:
            sv.Class = "allowed"
        }
        for c, m := range sb.Cells {
            sv.Cells[c] = cellView{Index: c, Symbol: m.String(), Playable: allowed && m == domain.Empty}
        }
        v.Boards = append(v.Boards, sv)
    }
    return v
}

func statusText(g domain.GameState) string {
    switch {
    case g.Macro.Outcome.Status == domain.Won:
        return fmt.Sprintf("%s wins!", g.Macro.Outcome.Winner)
    case g.Macro.Outcome.Status == domain.Drawn:
        return "Draw."
    case g.Ended:
        return "Game ended."
    case g.Forced != domain.Unconstrained:
        return fmt.Sprintf("%s to move on board %d.", g.Turn, g.Forced+1)
    default:
        return fmt.Sprintf("%s to move.", g.Turn)
    }
}

func seatText(m domain.Mark) string {
    if m == domain.Empty {
        return "spectating"
    }
    return "playing " + m.String()
}

const playerCookie = "player_id"

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
    if c, err := r.Cookie(playerCookie); err == nil && c.Value != "" {
        return c.Value
    }
    // Generate UUIDv4 for player ID
    v := uuid.NewString()
    http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
    return v
}
