package codenames

import (
	"math/rand"
	"strings"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

const GameType = "codenames"

const (
	kindClue  = "give_clue"
	kindGuess = "guess"
	kindPass  = "pass"

	phaseClue  = "giving_clue"
	phaseGuess = "guessing"

	roleCaptain   = "captain"
	roleOperative = "operative"

	colorTeam1    = "team1"
	colorTeam2    = "team2"
	colorNeutral  = "neutral"
	colorAssassin = "assassin"

	boardCards     = 25
	firstTeamCards = 9
	otherTeamCards = 8
)

type clueMove struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type guessMove struct {
	Index int `json:"index"`
}

type card struct {
	Word     string `json:"word"`
	Color    string `json:"color"`
	Revealed bool   `json:"revealed"`
}

type clue struct {
	Word        string `json:"word"`
	Count       int    `json:"count"`
	GuessesLeft int    `json:"guessesLeft"`
}

var wordBank = []string{
	"anchor", "bridge", "castle", "dragon", "engine", "forest", "glacier",
	"harbor", "island", "jungle", "kernel", "lantern", "market", "needle",
	"orbit", "palace", "quartz", "rocket", "shadow", "temple", "umbrella",
	"violet", "window", "yellow", "zephyr", "beacon", "canyon", "desert",
	"ember", "falcon", "garden", "hollow", "ivory", "jigsaw", "knight",
	"legend", "mirror", "nectar", "oyster", "pillar",
}

var defaults = engine.Settings{
	MinPlayers:  4,
	MaxPlayers:  4,
	TurnTimeout: 90 * time.Second,
}

// Game is the two-team word association game. Each team pairs a captain,
// who sees every card color and gives one-word clues, with an operative
// who guesses. The team that placed 9 cards opens. Revealing the assassin
// loses instantly; a team turn timer force-ends the turn, never the game.
type Game struct {
	roomID string
	roster *engine.Roster
	cfg    engine.Settings

	cards       []card
	firstTeam   string
	currentTeam string
	phase       string
	current     *clue
	winner      string
	rnd         *rand.Rand

	now      func() time.Time
	deadline time.Time // when the current team's turn force-ends
}

func New(roomID string, players []engine.Player, s engine.Settings) (engine.GameEngine, error) {
	cfg := s.WithDefaults(defaults)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		roomID: roomID,
		roster: engine.NewRoster(cfg.MinPlayers, cfg.MaxPlayers),
		cfg:    cfg,
		rnd:    rand.New(rand.NewSource(seed)),
		now:    time.Now,
	}
	g.dealBoard()
	for _, p := range players {
		if _, err := g.AddPlayer(p); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func Register(r *engine.Registry) { _ = r.Register(GameType, New) }

// dealBoard lays out 25 words: 9 for the opening team, 8 for the other,
// 7 neutral and 1 assassin.
func (g *Game) dealBoard() {
	words := append([]string(nil), wordBank...)
	g.rnd.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	words = words[:boardCards]

	if g.rnd.Intn(2) == 0 {
		g.firstTeam = colorTeam1
	} else {
		g.firstTeam = colorTeam2
	}
	second := otherTeam(g.firstTeam)

	colors := make([]string, 0, boardCards)
	for i := 0; i < firstTeamCards; i++ {
		colors = append(colors, g.firstTeam)
	}
	for i := 0; i < otherTeamCards; i++ {
		colors = append(colors, second)
	}
	for len(colors) < boardCards-1 {
		colors = append(colors, colorNeutral)
	}
	colors = append(colors, colorAssassin)
	g.rnd.Shuffle(len(colors), func(i, j int) { colors[i], colors[j] = colors[j], colors[i] })

	g.cards = make([]card, boardCards)
	for i := range g.cards {
		g.cards[i] = card{Word: words[i], Color: colors[i]}
	}
	g.currentTeam = g.firstTeam
	g.phase = phaseClue
}

func otherTeam(team string) string {
	if team == colorTeam1 {
		return colorTeam2
	}
	return colorTeam1
}

func (g *Game) Type() string          { return GameType }
func (g *Game) Status() engine.Status { return g.roster.Status() }
func (g *Game) PlayerIDs() []string   { return g.roster.IDs() }

// AddPlayer seats players as team1 captain, team1 operative, team2 captain,
// team2 operative in join order.
func (g *Game) AddPlayer(p engine.Player) ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusWaiting {
		return nil, engine.WrongPhase(string(g.roster.Status()), "cannot join a live game")
	}
	switch g.roster.Len() {
	case 0:
		p.Team, p.Role = colorTeam1, roleCaptain
	case 1:
		p.Team, p.Role = colorTeam1, roleOperative
	case 2:
		p.Team, p.Role = colorTeam2, roleCaptain
	default:
		p.Team, p.Role = colorTeam2, roleOperative
	}
	p.Status = "active"
	if err := g.roster.Add(p); err != nil {
		return nil, err
	}
	var events []engine.Event
	if g.roster.Len() == g.cfg.MinPlayers {
		g.roster.SetStatus(engine.StatusInProgress)
		g.deadline = g.now().Add(g.cfg.TurnTimeout)
		events = append(events, engine.Broadcast("game_started", map[string]any{
			"room":      g.roomID,
			"players":   g.roster.Players(),
			"firstTeam": g.firstTeam,
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
	// a team cannot play without both roles; forfeit to the opponents
	g.roster.SetStatus(engine.StatusFinished)
	g.winner = otherTeam(p.Team)
	return []engine.Event{
		engine.Broadcast("player_resigned", map[string]any{"player": p.ID, "team": p.Team}),
		g.finishedEvent("forfeit"),
	}, nil
}

func (g *Game) Apply(playerID string, act engine.Action) ([]engine.Event, error) {
	switch act.Kind {
	case engine.KindTimeout:
		return g.applyTurnTimeout()
	case kindClue:
		var mv clueMove
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed move payload")
		}
		return g.giveClue(playerID, mv)
	case kindGuess:
		var mv guessMove
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed move payload")
		}
		return g.guess(playerID, mv.Index)
	case kindPass:
		return g.pass(playerID)
	default:
		return nil, engine.Invalid("unknown action %q", act.Kind)
	}
}

// applyTurnTimeout force-ends the current team's turn, never the game.
func (g *Game) applyTurnTimeout() ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusInProgress {
		return nil, nil
	}
	timedOut := g.currentTeam
	g.endTurn()
	return []engine.Event{
		engine.Broadcast("timeout_move", map[string]any{"team": timedOut}),
		g.turnEvent(),
	}, nil
}

func (g *Game) giveClue(playerID string, mv clueMove) ([]engine.Event, error) {
	if err := g.checkRole(playerID, roleCaptain); err != nil {
		return nil, err
	}
	if g.phase != phaseClue {
		return nil, engine.WrongPhase(g.phase, "a clue is already in play")
	}
	word := normalize(mv.Word)
	if word == "" || strings.ContainsAny(word, " \t") {
		return nil, engine.Invalid("clue must be a single word")
	}
	if mv.Count < 1 || mv.Count > 9 {
		return nil, engine.Invalid("clue count must be between 1 and 9")
	}
	for _, c := range g.cards {
		if c.Revealed {
			continue
		}
		bw := normalize(c.Word)
		if word == bw || strings.Contains(word, bw) || strings.Contains(bw, word) {
			return nil, engine.Invalid("clue %q is too close to the board word %q", mv.Word, c.Word)
		}
	}

	g.current = &clue{Word: word, Count: mv.Count, GuessesLeft: mv.Count + 1}
	g.phase = phaseGuess
	g.roster.Record(playerID, kindClue)
	return []engine.Event{
		engine.Broadcast("clue_given", map[string]any{
			"team":  g.currentTeam,
			"word":  word,
			"count": mv.Count,
		}),
	}, nil
}

func (g *Game) guess(playerID string, idx int) ([]engine.Event, error) {
	if err := g.checkRole(playerID, roleOperative); err != nil {
		return nil, err
	}
	if g.phase != phaseGuess {
		return nil, engine.WrongPhase(g.phase, "waiting for a clue")
	}
	if idx < 0 || idx >= len(g.cards) {
		return nil, engine.Invalid("card index out of range")
	}
	c := &g.cards[idx]
	if c.Revealed {
		return nil, engine.Invalid("card already revealed")
	}

	c.Revealed = true
	g.current.GuessesLeft--
	g.roster.Record(playerID, kindGuess)

	events := []engine.Event{
		engine.Broadcast("guess_made", map[string]any{
			"team":   g.currentTeam,
			"player": playerID,
			"index":  idx,
			"word":   c.Word,
			"color":  c.Color,
		}),
	}

	switch {
	case c.Color == colorAssassin:
		// instant loss for the guessing team
		g.roster.SetStatus(engine.StatusFinished)
		g.winner = otherTeam(g.currentTeam)
		return append(events, g.finishedEvent("assassin")), nil

	case c.Color == g.currentTeam:
		if g.teamCleared(g.currentTeam) {
			g.roster.SetStatus(engine.StatusFinished)
			g.winner = g.currentTeam
			return append(events, g.finishedEvent("all_cards")), nil
		}
		if g.current.GuessesLeft <= 0 {
			g.endTurn()
			events = append(events, g.turnEvent())
		}
		return events, nil

	default:
		// wrong color: the turn ends, and an opposing-team card may even
		// finish their board for them
		if c.Color != colorNeutral && g.teamCleared(c.Color) {
			g.roster.SetStatus(engine.StatusFinished)
			g.winner = c.Color
			return append(events, g.finishedEvent("all_cards")), nil
		}
		g.endTurn()
		return append(events, g.turnEvent()), nil
	}
}

func (g *Game) pass(playerID string) ([]engine.Event, error) {
	if err := g.checkRole(playerID, roleOperative); err != nil {
		return nil, err
	}
	if g.phase != phaseGuess {
		return nil, engine.WrongPhase(g.phase, "nothing to pass")
	}
	g.endTurn()
	return []engine.Event{
		engine.Broadcast("turn_passed", map[string]any{"player": playerID}),
		g.turnEvent(),
	}, nil
}

func (g *Game) checkRole(playerID, role string) error {
	if err := g.roster.CheckMember(playerID); err != nil {
		return err
	}
	p, _ := g.roster.Get(playerID)
	if p.Team != g.currentTeam {
		return engine.Invalid("not your team's turn")
	}
	if p.Role != role {
		return engine.Invalid("only the %s may do that", role)
	}
	return nil
}

func (g *Game) endTurn() {
	g.current = nil
	g.currentTeam = otherTeam(g.currentTeam)
	g.phase = phaseClue
	g.deadline = g.now().Add(g.cfg.TurnTimeout)
}

func (g *Game) teamCleared(team string) bool {
	for _, c := range g.cards {
		if c.Color == team && !c.Revealed {
			return false
		}
	}
	return true
}

func (g *Game) remainingFor(team string) int {
	n := 0
	for _, c := range g.cards {
		if c.Color == team && !c.Revealed {
			n++
		}
	}
	return n
}

func (g *Game) turnEvent() engine.Event {
	return engine.Broadcast("turn_started", map[string]any{
		"team":  g.currentTeam,
		"phase": g.phase,
	})
}

func (g *Game) finishedEvent(reason string) engine.Event {
	return engine.Broadcast("game_finished", map[string]any{
		"room":   g.roomID,
		"winner": g.winner,
		"reason": reason,
	})
}

func (g *Game) State() map[string]any {
	return g.snapshot(false)
}

// StateFor hides unrevealed colors from operatives; captains see the key.
func (g *Game) StateFor(playerID string) map[string]any {
	p, ok := g.roster.Get(playerID)
	redact := !ok || p.Role != roleCaptain
	if g.roster.Status() == engine.StatusFinished {
		redact = false
	}
	return g.snapshot(redact)
}

func (g *Game) snapshot(redact bool) map[string]any {
	cells := make([]map[string]any, len(g.cards))
	for i, c := range g.cards {
		cell := map[string]any{"word": c.Word, "revealed": c.Revealed}
		if !redact || c.Revealed {
			cell["color"] = c.Color
		}
		cells[i] = cell
	}
	st := map[string]any{
		"gameType":    GameType,
		"room":        g.roomID,
		"status":      g.roster.Status(),
		"players":     g.roster.Players(),
		"cards":       cells,
		"firstTeam":   g.firstTeam,
		"currentTeam": g.currentTeam,
		"phase":       g.phase,
		"remaining": map[string]int{
			colorTeam1: g.remainingFor(colorTeam1),
			colorTeam2: g.remainingFor(colorTeam2),
		},
		"winner": g.winner,
	}
	if g.current != nil {
		st["clue"] = g.current
	}
	return st
}

// Turn arms one team-wide timer per turn. The deadline is fixed when the
// turn starts, so guesses and clues inside a turn never stretch it.
func (g *Game) Turn() (string, time.Duration, bool) {
	if g.roster.Status() != engine.StatusInProgress {
		return "", 0, false
	}
	d := g.deadline.Sub(g.now())
	if d < 0 {
		d = 0
	}
	return "", d, true
}

// normalize lowercases and strips the diacritics that show up in player
// input, so containment checks compare plain letters.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	repl := strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ä", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e", "ё", "е",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "ö", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n",
	)
	return repl.Replace(s)
}
