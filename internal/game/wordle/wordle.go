package wordle

import (
	"math/rand"
	"strings"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

const GameType = "wordle"

const (
	kindGuess = "guess"

	maxAttempts = 6
	wordLen     = 5
)

type guessMove struct {
	Word string `json:"word"`
}

// letter feedback markers
const (
	feedbackCorrect = "correct"
	feedbackPresent = "present"
	feedbackAbsent  = "absent"
)

var wordBank = []string{
	"apple", "brave", "crane", "dream", "eagle",
	"flame", "grape", "house", "ivory", "joker",
	"knife", "lemon", "mango", "night", "ocean",
	"piano", "queen", "river", "stone", "tiger",
	"urban", "vivid", "whale", "xenon", "yacht",
	"zebra", "amber", "blush", "cedar", "dwell",
}

type attempt struct {
	Word     string   `json:"word"`
	Feedback []string `json:"feedback"`
}

type playerRound struct {
	Attempts []attempt `json:"attempts"`
	Solved   bool      `json:"solved"`
	Done     bool      `json:"done"`
}

var defaults = engine.Settings{
	MinPlayers:  2,
	MaxPlayers:  2,
	Rounds:      3,
	Format:      "1v1",
	TurnTimeout: 3 * time.Minute, // per round
}

// Game is a multi-round word guessing race. All players attack the same
// secret word each round; solving it in k attempts scores 7-k points. In
// the 2v2 format seats alternate between team1 and team2 and team totals
// decide the winner.
type Game struct {
	roomID string
	roster *engine.Roster
	cfg    engine.Settings

	round    int // 1-based
	secret   string
	progress map[string]*playerRound
	winner   string
	rnd      *rand.Rand
}

func New(roomID string, players []engine.Player, s engine.Settings) (engine.GameEngine, error) {
	cfg := s.WithDefaults(defaults)
	if cfg.Format == "2v2" {
		cfg.MinPlayers, cfg.MaxPlayers = 4, 4
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		roomID:   roomID,
		roster:   engine.NewRoster(cfg.MinPlayers, cfg.MaxPlayers),
		cfg:      cfg,
		progress: make(map[string]*playerRound),
		rnd:      rand.New(rand.NewSource(seed)),
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
	if g.cfg.Format == "2v2" {
		if g.roster.Len()%2 == 0 {
			p.Team = "team1"
		} else {
			p.Team = "team2"
		}
	}
	if err := g.roster.Add(p); err != nil {
		return nil, err
	}
	var events []engine.Event
	if g.roster.Len() == g.cfg.MinPlayers {
		g.roster.SetStatus(engine.StatusInProgress)
		g.startRound()
		events = append(events, engine.Broadcast("game_started", map[string]any{
			"room":    g.roomID,
			"players": g.roster.IDs(),
			"rounds":  g.cfg.Rounds,
			"format":  g.cfg.Format,
		}))
	}
	return events, nil
}

func (g *Game) RemovePlayer(id string) ([]engine.Event, error) {
	p, ok := g.roster.Remove(id)
	if !ok {
		return nil, engine.Invalid("player %s is not in this game", id)
	}
	delete(g.progress, id)
	if g.roster.Status() != engine.StatusInProgress {
		return nil, nil
	}
	if g.roster.Len() < 2 {
		g.finish()
		return []engine.Event{
			engine.Broadcast("player_resigned", map[string]any{"player": p.ID}),
			g.finishedEvent(),
		}, nil
	}
	events := []engine.Event{engine.Broadcast("player_resigned", map[string]any{"player": p.ID})}
	if g.roundComplete() {
		events = append(events, g.advanceRound()...)
	}
	return events, nil
}

func (g *Game) startRound() {
	g.round++
	g.secret = wordBank[g.rnd.Intn(len(wordBank))]
	g.progress = make(map[string]*playerRound)
	for _, id := range g.roster.IDs() {
		g.progress[id] = &playerRound{}
	}
}

func (g *Game) Apply(playerID string, act engine.Action) ([]engine.Event, error) {
	switch act.Kind {
	case engine.KindTimeout:
		return g.applyRoundTimeout()
	case kindGuess:
		var mv guessMove
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed move payload")
		}
		if err := g.roster.CheckMember(playerID); err != nil {
			return nil, err
		}
		return g.guess(playerID, mv.Word)
	default:
		return nil, engine.Invalid("unknown action %q", act.Kind)
	}
}

// applyRoundTimeout force-finishes the round for everyone still guessing.
func (g *Game) applyRoundTimeout() ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusInProgress {
		return nil, nil
	}
	for _, pr := range g.progress {
		pr.Done = true
	}
	events := []engine.Event{engine.Broadcast("timeout_move", map[string]any{"round": g.round})}
	return append(events, g.advanceRound()...), nil
}

func (g *Game) guess(playerID, word string) ([]engine.Event, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if len(word) != wordLen {
		return nil, engine.Invalid("guess must be %d letters", wordLen)
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return nil, engine.Invalid("guess must be alphabetic")
		}
	}
	pr := g.progress[playerID]
	if pr == nil {
		return nil, engine.Invalid("player %s has no active round", playerID)
	}
	if pr.Done {
		return nil, engine.WrongPhase("round", "round already finished for you")
	}

	fb := feedback(g.secret, word)
	pr.Attempts = append(pr.Attempts, attempt{Word: word, Feedback: fb})
	g.roster.Record(playerID, kindGuess)

	if word == g.secret {
		pr.Solved = true
		pr.Done = true
		if p, ok := g.roster.Get(playerID); ok {
			p.Score += 7 - len(pr.Attempts)
		}
	} else if len(pr.Attempts) >= maxAttempts {
		pr.Done = true
	}

	events := []engine.Event{
		engine.Direct(playerID, "guess_made", map[string]any{
			"round":    g.round,
			"word":     word,
			"feedback": fb,
			"solved":   pr.Solved,
			"attempts": len(pr.Attempts),
		}),
		engine.Broadcast("player_progress", map[string]any{
			"player":   playerID,
			"round":    g.round,
			"attempts": len(pr.Attempts),
			"solved":   pr.Solved,
			"done":     pr.Done,
		}),
	}

	if g.roundComplete() {
		events = append(events, g.advanceRound()...)
	}
	return events, nil
}

func (g *Game) roundComplete() bool {
	for _, id := range g.roster.IDs() {
		if pr := g.progress[id]; pr == nil || !pr.Done {
			return false
		}
	}
	return true
}

func (g *Game) advanceRound() []engine.Event {
	events := []engine.Event{
		engine.Broadcast("round_completed", map[string]any{
			"round":  g.round,
			"secret": g.secret,
			"scores": g.scores(),
		}),
	}
	if g.round >= g.cfg.Rounds {
		g.finish()
		return append(events, g.finishedEvent())
	}
	g.startRound()
	return append(events, engine.Broadcast("round_started", map[string]any{"round": g.round}))
}

func (g *Game) finish() {
	g.roster.SetStatus(engine.StatusFinished)
	if g.cfg.Format == "2v2" {
		totals := g.teamScores()
		switch {
		case totals["team1"] > totals["team2"]:
			g.winner = "team1"
		case totals["team2"] > totals["team1"]:
			g.winner = "team2"
		default:
			g.winner = "draw"
		}
		return
	}
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

func (g *Game) scores() map[string]int {
	out := map[string]int{}
	for _, p := range g.roster.Players() {
		out[p.ID] = p.Score
	}
	return out
}

func (g *Game) teamScores() map[string]int {
	out := map[string]int{}
	for _, p := range g.roster.Players() {
		out[p.Team] += p.Score
	}
	return out
}

func (g *Game) finishedEvent() engine.Event {
	data := map[string]any{
		"room":   g.roomID,
		"winner": g.winner,
		"scores": g.scores(),
	}
	if g.cfg.Format == "2v2" {
		data["teamScores"] = g.teamScores()
	}
	return engine.Broadcast("game_finished", data)
}

func (g *Game) State() map[string]any {
	st := g.snapshotShared()
	st["secret"] = g.secret
	boards := map[string]any{}
	for id, pr := range g.progress {
		boards[id] = pr
	}
	st["boards"] = boards
	return st
}

// StateFor shows the caller's own attempts in full; opponents are reduced
// to attempt counts so their letter feedback leaks nothing about the word.
func (g *Game) StateFor(playerID string) map[string]any {
	st := g.snapshotShared()
	if pr, ok := g.progress[playerID]; ok {
		st["you"] = pr
	}
	others := map[string]any{}
	for id, pr := range g.progress {
		if id == playerID {
			continue
		}
		others[id] = map[string]any{
			"attempts": len(pr.Attempts),
			"solved":   pr.Solved,
			"done":     pr.Done,
		}
	}
	st["others"] = others
	return st
}

func (g *Game) snapshotShared() map[string]any {
	return map[string]any{
		"gameType": GameType,
		"room":     g.roomID,
		"status":   g.roster.Status(),
		"players":  g.roster.Players(),
		"round":    g.round,
		"rounds":   g.cfg.Rounds,
		"format":   g.cfg.Format,
		"scores":   g.scores(),
		"winner":   g.winner,
	}
}

// Turn arms one room-wide timer per round.
func (g *Game) Turn() (string, time.Duration, bool) {
	if g.roster.Status() != engine.StatusInProgress {
		return "", 0, false
	}
	return "", g.cfg.TurnTimeout, true
}

// feedback is the standard two-pass scoring: exact positions first, then
// remaining letters matched against leftover counts.
func feedback(secret, guess string) []string {
	out := make([]string, wordLen)
	counts := map[byte]int{}
	for i := 0; i < wordLen; i++ {
		if guess[i] == secret[i] {
			out[i] = feedbackCorrect
		} else {
			counts[secret[i]]++
		}
	}
	for i := 0; i < wordLen; i++ {
		if out[i] != "" {
			continue
		}
		if counts[guess[i]] > 0 {
			out[i] = feedbackPresent
			counts[guess[i]]--
		} else {
			out[i] = feedbackAbsent
		}
	}
	return out
}
