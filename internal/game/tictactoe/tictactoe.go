package tictactoe

import (
	"math/rand"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

const GameType = "tic_tac_toe"

const (
	kindPlace = "place"
)

type placeMove struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

var defaults = engine.Settings{
	MinPlayers:   2,
	MaxPlayers:   2,
	BoardSize:    3,
	WinCondition: 3,
	TurnTimeout:  30 * time.Second,
}

// Game is a tic-tac-toe session with configurable board size and win-run
// length. Seat 0 plays X, seat 1 plays O.
type Game struct {
	roomID string
	roster *engine.Roster
	cfg    engine.Settings

	board  []string // "" | "X" | "O", row-major
	winner string   // player id, or "draw"
	rnd    *rand.Rand
}

func New(roomID string, players []engine.Player, s engine.Settings) (engine.GameEngine, error) {
	cfg := s.WithDefaults(defaults)
	if cfg.WinCondition > cfg.BoardSize {
		cfg.WinCondition = cfg.BoardSize
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		roomID: roomID,
		roster: engine.NewRoster(cfg.MinPlayers, cfg.MaxPlayers),
		cfg:    cfg,
		board:  make([]string, cfg.BoardSize*cfg.BoardSize),
		rnd:    rand.New(rand.NewSource(seed)),
	}
	for _, p := range players {
		if _, err := g.AddPlayer(p); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func Register(r *engine.Registry) { _ = r.Register(GameType, New) }

func (g *Game) Type() string          { return GameType }
func (g *Game) Status() engine.Status { return g.roster.Status() }
func (g *Game) PlayerIDs() []string   { return g.roster.IDs() }

func (g *Game) AddPlayer(p engine.Player) ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusWaiting {
		return nil, engine.WrongPhase(string(g.roster.Status()), "cannot join a live game")
	}
	p.Status = "active"
	if err := g.roster.Add(p); err != nil {
		return nil, err
	}
	var events []engine.Event
	if g.roster.Len() == g.cfg.MinPlayers {
		g.roster.SetStatus(engine.StatusInProgress)
		g.roster.SetCurrent(0)
		events = append(events, engine.Broadcast("game_started", map[string]any{
			"room":    g.roomID,
			"players": g.roster.IDs(),
		}))
	}
	return events, nil
}

func (g *Game) RemovePlayer(id string) ([]engine.Event, error) {
	p, ok := g.roster.Remove(id)
	if !ok {
		return nil, engine.Invalid("player %s is not in this game", id)
	}
	if g.roster.Status() != engine.StatusInProgress {
		return nil, nil
	}
	// leaving mid-game forfeits to the opponent
	g.roster.SetStatus(engine.StatusFinished)
	if rest := g.roster.IDs(); len(rest) > 0 {
		g.winner = rest[0]
	}
	return []engine.Event{
		engine.Broadcast("player_resigned", map[string]any{"player": p.ID}),
		g.finishedEvent(),
	}, nil
}

func (g *Game) Apply(playerID string, act engine.Action) ([]engine.Event, error) {
	switch act.Kind {
	case engine.KindTimeout:
		return g.applyTimeout(playerID)
	case kindPlace:
		var mv placeMove
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed move payload")
		}
		if err := g.roster.CheckTurn(playerID); err != nil {
			return nil, err
		}
		return g.place(playerID, mv, false)
	default:
		return nil, engine.Invalid("unknown action %q", act.Kind)
	}
}

// applyTimeout places a random legal mark for the stalled player.
func (g *Game) applyTimeout(playerID string) ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusInProgress || g.roster.CurrentID() != playerID {
		return nil, nil
	}
	empty := g.emptyCells()
	if len(empty) == 0 {
		return nil, nil
	}
	idx := empty[g.rnd.Intn(len(empty))]
	mv := placeMove{Row: idx / g.cfg.BoardSize, Col: idx % g.cfg.BoardSize}
	events, err := g.place(playerID, mv, true)
	if err != nil {
		return nil, err
	}
	return append([]engine.Event{
		engine.Broadcast("timeout_move", map[string]any{"player": playerID}),
	}, events...), nil
}

func (g *Game) place(playerID string, mv placeMove, fromTimer bool) ([]engine.Event, error) {
	n := g.cfg.BoardSize
	if mv.Row < 0 || mv.Row >= n || mv.Col < 0 || mv.Col >= n {
		return nil, engine.Invalid("cell out of range")
	}
	idx := mv.Row*n + mv.Col
	if g.board[idx] != "" {
		return nil, engine.Invalid("cell already occupied")
	}

	mark := g.markOf(playerID)
	g.board[idx] = mark
	g.roster.Record(playerID, kindPlace)

	events := []engine.Event{
		engine.Broadcast("move_made", map[string]any{
			"player": playerID,
			"row":    mv.Row,
			"col":    mv.Col,
			"mark":   mark,
		}),
	}

	switch {
	case g.hasRun(mark):
		g.winner = playerID
		g.roster.SetStatus(engine.StatusFinished)
		events = append(events, g.finishedEvent())
	case len(g.emptyCells()) == 0:
		g.winner = "draw"
		g.roster.SetStatus(engine.StatusFinished)
		events = append(events, g.finishedEvent())
	default:
		g.roster.Advance(nil)
	}
	return events, nil
}

func (g *Game) markOf(playerID string) string {
	if g.roster.IndexOf(playerID) == 0 {
		return "X"
	}
	return "O"
}

func (g *Game) emptyCells() []int {
	var out []int
	for i, v := range g.board {
		if v == "" {
			out = append(out, i)
		}
	}
	return out
}

// hasRun scans every horizontal, vertical and both diagonal directions for
// a run of winCondition marks.
func (g *Game) hasRun(mark string) bool {
	n := g.cfg.BoardSize
	need := g.cfg.WinCondition
	dirs := [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if g.board[r*n+c] != mark {
				continue
			}
			for _, d := range dirs {
				count := 1
				rr, cc := r+d[0], c+d[1]
				for rr >= 0 && rr < n && cc >= 0 && cc < n && g.board[rr*n+cc] == mark {
					count++
					if count >= need {
						return true
					}
					rr += d[0]
					cc += d[1]
				}
			}
		}
	}
	return false
}

func (g *Game) finishedEvent() engine.Event {
	return engine.Broadcast("game_finished", map[string]any{
		"room":   g.roomID,
		"winner": g.winner,
	})
}

func (g *Game) State() map[string]any {
	return map[string]any{
		"gameType":      GameType,
		"room":          g.roomID,
		"status":        g.roster.Status(),
		"players":       g.roster.Players(),
		"board":         append([]string(nil), g.board...),
		"boardSize":     g.cfg.BoardSize,
		"winCondition":  g.cfg.WinCondition,
		"currentPlayer": g.roster.CurrentID(),
		"winner":        g.winner,
	}
}

// StateFor matches State: the board is public.
func (g *Game) StateFor(string) map[string]any { return g.State() }

func (g *Game) Turn() (string, time.Duration, bool) {
	if g.roster.Status() != engine.StatusInProgress {
		return "", 0, false
	}
	return g.roster.CurrentID(), g.cfg.TurnTimeout, true
}
