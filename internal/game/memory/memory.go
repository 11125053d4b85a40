package memory

import (
	"math/rand"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

const GameType = "memory"

const (
	kindFlip = "flip"

	matchPoints = 10
)

type flipMove struct {
	Index int `json:"index"`
}

type card struct {
	Value   int  `json:"value"`
	FaceUp  bool `json:"faceUp"`
	Matched bool `json:"matched"`
}

var defaults = engine.Settings{
	MinPlayers:  2,
	MaxPlayers:  2,
	BoardSize:   16, // cells, must be even
	TurnTimeout: 30 * time.Second,
}

// Game is the pair-matching memory game. A matched pair keeps the turn with
// the same player and awards points; a mismatch re-hides both cards and
// passes the turn.
type Game struct {
	roomID string
	roster *engine.Roster
	cfg    engine.Settings

	cards  []card
	flipped []int // indices of face-up unmatched cards, len <= 2
	winner string
	rnd    *rand.Rand
}

func New(roomID string, players []engine.Player, s engine.Settings) (engine.GameEngine, error) {
	cfg := s.WithDefaults(defaults)
	if cfg.BoardSize%2 != 0 {
		cfg.BoardSize++
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		roomID: roomID,
		roster: engine.NewRoster(cfg.MinPlayers, cfg.MaxPlayers),
		cfg:    cfg,
		rnd:    rand.New(rand.NewSource(seed)),
	}
	g.dealCards()
	for _, p := range players {
		if _, err := g.AddPlayer(p); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func Register(r *engine.Registry) { _ = r.Register(GameType, New) }

func (g *Game) dealCards() {
	n := g.cfg.BoardSize
	g.cards = make([]card, 0, n)
	for v := 0; v < n/2; v++ {
		g.cards = append(g.cards, card{Value: v}, card{Value: v})
	}
	g.rnd.Shuffle(len(g.cards), func(i, j int) {
		g.cards[i], g.cards[j] = g.cards[j], g.cards[i]
	})
}

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
	case kindFlip:
		var mv flipMove
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed move payload")
		}
		if err := g.roster.CheckTurn(playerID); err != nil {
			return nil, err
		}
		return g.flip(playerID, mv.Index)
	default:
		return nil, engine.Invalid("unknown action %q", act.Kind)
	}
}

func (g *Game) applyTimeout(playerID string) ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusInProgress || g.roster.CurrentID() != playerID {
		return nil, nil
	}
	hidden := g.hiddenIndices()
	if len(hidden) == 0 {
		return nil, nil
	}
	idx := hidden[g.rnd.Intn(len(hidden))]
	events, err := g.flip(playerID, idx)
	if err != nil {
		return nil, err
	}
	return append([]engine.Event{
		engine.Broadcast("timeout_move", map[string]any{"player": playerID}),
	}, events...), nil
}

func (g *Game) flip(playerID string, idx int) ([]engine.Event, error) {
	if idx < 0 || idx >= len(g.cards) {
		return nil, engine.Invalid("card index out of range")
	}
	c := &g.cards[idx]
	if c.Matched || c.FaceUp {
		return nil, engine.Invalid("card already revealed")
	}

	c.FaceUp = true
	g.flipped = append(g.flipped, idx)
	g.roster.Record(playerID, kindFlip)

	events := []engine.Event{
		engine.Broadcast("card_flipped", map[string]any{
			"player": playerID,
			"index":  idx,
			"value":  c.Value,
		}),
	}

	if len(g.flipped) < 2 {
		return events, nil
	}

	a, b := g.flipped[0], g.flipped[1]
	g.flipped = nil

	if g.cards[a].Value == g.cards[b].Value {
		g.cards[a].Matched = true
		g.cards[b].Matched = true
		if p, ok := g.roster.Get(playerID); ok {
			p.Score += matchPoints
		}
		events = append(events, engine.Broadcast("match_found", map[string]any{
			"player":  playerID,
			"indices": []int{a, b},
			"value":   g.cards[a].Value,
		}))
		// a match keeps the turn with the same player
		if g.allMatched() {
			g.finish()
			events = append(events, g.finishedEvent())
		}
		return events, nil
	}

	// mismatch: both cards return face-down, turn passes
	g.cards[a].FaceUp = false
	g.cards[b].FaceUp = false
	g.roster.Advance(nil)
	events = append(events, engine.Broadcast("no_match", map[string]any{
		"player":     playerID,
		"indices":    []int{a, b},
		"nextPlayer": g.roster.CurrentID(),
	}))
	return events, nil
}

func (g *Game) hiddenIndices() []int {
	var out []int
	for i, c := range g.cards {
		if !c.Matched && !c.FaceUp {
			out = append(out, i)
		}
	}
	return out
}

func (g *Game) allMatched() bool {
	for _, c := range g.cards {
		if !c.Matched {
			return false
		}
	}
	return true
}

func (g *Game) finish() {
	g.roster.SetStatus(engine.StatusFinished)
	best, bestScore, tie := "", -1, false
	for _, p := range g.roster.Players() {
		switch {
		case p.Score > bestScore:
			best, bestScore, tie = p.ID, p.Score, false
		case p.Score == bestScore:
			tie = true
		}
	}
	if tie {
		g.winner = "draw"
	} else {
		g.winner = best
	}
}

func (g *Game) finishedEvent() engine.Event {
	scores := map[string]int{}
	for _, p := range g.roster.Players() {
		scores[p.ID] = p.Score
	}
	return engine.Broadcast("game_finished", map[string]any{
		"room":   g.roomID,
		"winner": g.winner,
		"scores": scores,
	})
}

func (g *Game) State() map[string]any {
	return g.snapshot(false)
}

// StateFor hides the values of face-down cards behind a placeholder.
func (g *Game) StateFor(string) map[string]any {
	return g.snapshot(true)
}

func (g *Game) snapshot(redact bool) map[string]any {
	cells := make([]map[string]any, len(g.cards))
	for i, c := range g.cards {
		cell := map[string]any{
			"faceUp":  c.FaceUp,
			"matched": c.Matched,
		}
		if !redact || c.FaceUp || c.Matched {
			cell["value"] = c.Value
		} else {
			cell["value"] = -1
		}
		cells[i] = cell
	}
	return map[string]any{
		"gameType":      GameType,
		"room":          g.roomID,
		"status":        g.roster.Status(),
		"players":       g.roster.Players(),
		"cards":         cells,
		"currentPlayer": g.roster.CurrentID(),
		"winner":        g.winner,
	}
}

func (g *Game) Turn() (string, time.Duration, bool) {
	if g.roster.Status() != engine.StatusInProgress {
		return "", 0, false
	}
	return g.roster.CurrentID(), g.cfg.TurnTimeout, true
}
