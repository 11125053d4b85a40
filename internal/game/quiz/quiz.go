package quiz

import (
	"math/rand"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

const GameType = "quiz"

const kindAnswer = "answer"

type answerMove struct {
	AnswerIndex int `json:"answerIndex"` // -1 means skip
}

type question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"-"`
}

var questionBank = []question{
	{"Which planet is known as the Red Planet?", []string{"Mercury", "Venus", "Earth", "Mars"}, 3},
	{"Who wrote the novel War and Peace?", []string{"Dostoevsky", "Tolstoy", "Chekhov", "Pushkin"}, 1},
	{"Which chemical element has the symbol O?", []string{"Tin", "Osmium", "Oxygen", "Gold"}, 2},
	{"In which year did World War II begin?", []string{"1938", "1939", "1940", "1941"}, 1},
	{"What is the highest mountain on Earth?", []string{"K2", "Everest", "Kangchenjunga", "Lhotse"}, 1},
	{"Who invented the telephone?", []string{"Thomas Edison", "Nikola Tesla", "Alexander Bell", "Henry Ford"}, 2},
	{"Which ocean is the largest?", []string{"Atlantic", "Indian", "Arctic", "Pacific"}, 3},
	{"How many continents are there?", []string{"5", "6", "7", "8"}, 2},
	{"Which currency is used in Japan?", []string{"Won", "Yuan", "Yen", "Ruble"}, 2},
	{"Who painted the Mona Lisa?", []string{"Michelangelo", "Leonardo da Vinci", "Raphael", "Picasso"}, 1},
	{"Which planet is closest to the Sun?", []string{"Venus", "Mercury", "Mars", "Earth"}, 1},
	{"How many days are in a leap year?", []string{"365", "366", "367", "364"}, 1},
	{"Which gas makes up most of Earth's atmosphere?", []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Argon"}, 2},
	{"Who wrote Hamlet?", []string{"Shakespeare", "Moliere", "Goethe", "Byron"}, 0},
	{"In which city is the Statue of Liberty?", []string{"Los Angeles", "Chicago", "New York", "Boston"}, 2},
}

var defaults = engine.Settings{
	MinPlayers:      2,
	MaxPlayers:      2,
	Format:          "1v1",
	TotalQuestions:  10,
	QuestionTimeout: 15 * time.Second,
}

// Game is a simultaneous-input trivia session. All players answer the same
// question; the round advances when everyone has answered or the question
// timer fires. In the 2v2 format team totals decide the winner.
type Game struct {
	roomID string
	roster *engine.Roster
	cfg    engine.Settings

	questions []question
	idx       int
	answers   map[string]int // playerID -> answer for the current question
	winner    string
	rnd       *rand.Rand

	now      func() time.Time
	deadline time.Time // when the current question's window closes
}

func New(roomID string, players []engine.Player, s engine.Settings) (engine.GameEngine, error) {
	cfg := s.WithDefaults(defaults)
	if cfg.Format == "2v2" {
		cfg.MinPlayers, cfg.MaxPlayers = 4, 4
	}
	if cfg.TotalQuestions > len(questionBank) {
		cfg.TotalQuestions = len(questionBank)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		roomID:  roomID,
		roster:  engine.NewRoster(cfg.MinPlayers, cfg.MaxPlayers),
		cfg:     cfg,
		answers: make(map[string]int),
		rnd:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
	}
	g.questions = append([]question(nil), questionBank...)
	g.rnd.Shuffle(len(g.questions), func(i, j int) {
		g.questions[i], g.questions[j] = g.questions[j], g.questions[i]
	})
	g.questions = g.questions[:cfg.TotalQuestions]
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
		events = append(events,
			engine.Broadcast("game_started", map[string]any{
				"room":           g.roomID,
				"players":        g.roster.IDs(),
				"totalQuestions": g.cfg.TotalQuestions,
				"format":         g.cfg.Format,
			}),
			g.questionEvent(),
		)
	}
	return events, nil
}

func (g *Game) RemovePlayer(id string) ([]engine.Event, error) {
	p, ok := g.roster.Remove(id)
	if !ok {
		return nil, engine.Invalid("player %s is not in this game", id)
	}
	delete(g.answers, id)
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
	if g.allAnswered() {
		events = append(events, g.advance()...)
	}
	return events, nil
}

func (g *Game) Apply(playerID string, act engine.Action) ([]engine.Event, error) {
	switch act.Kind {
	case engine.KindTimeout:
		return g.applyQuestionTimeout()
	case kindAnswer:
		var mv answerMove
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed move payload")
		}
		if err := g.roster.CheckMember(playerID); err != nil {
			return nil, err
		}
		return g.answer(playerID, mv.AnswerIndex)
	default:
		return nil, engine.Invalid("unknown action %q", act.Kind)
	}
}

// applyQuestionTimeout records a skip for everyone who has not answered.
func (g *Game) applyQuestionTimeout() ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusInProgress {
		return nil, nil
	}
	for _, id := range g.roster.IDs() {
		if _, ok := g.answers[id]; !ok {
			g.answers[id] = -1
		}
	}
	events := []engine.Event{engine.Broadcast("timeout_move", map[string]any{"question": g.idx})}
	return append(events, g.advance()...), nil
}

func (g *Game) answer(playerID string, idx int) ([]engine.Event, error) {
	if _, ok := g.answers[playerID]; ok {
		return nil, engine.Invalid("already answered this question")
	}
	if idx < -1 || idx >= len(g.questions[g.idx].Options) {
		return nil, engine.Invalid("answer index out of range")
	}

	g.answers[playerID] = idx
	g.roster.Record(playerID, kindAnswer)

	correct := idx >= 0 && idx == g.questions[g.idx].Correct
	if correct {
		if p, ok := g.roster.Get(playerID); ok {
			p.Score++
		}
	}

	events := []engine.Event{
		engine.Direct(playerID, "answer_submitted", map[string]any{
			"question": g.idx,
			"answer":   idx,
			"correct":  correct,
		}),
		engine.Broadcast("player_answered", map[string]any{
			"player":   playerID,
			"answered": len(g.answers),
			"total":    g.roster.Len(),
		}),
	}
	if g.allAnswered() {
		events = append(events, g.advance()...)
	}
	return events, nil
}

func (g *Game) allAnswered() bool {
	return len(g.answers) >= g.roster.Len()
}

func (g *Game) advance() []engine.Event {
	events := []engine.Event{
		engine.Broadcast("question_result", map[string]any{
			"question": g.idx,
			"correct":  g.questions[g.idx].Correct,
			"answers":  g.answers,
			"scores":   g.scores(),
		}),
	}
	g.answers = make(map[string]int)
	g.idx++
	if g.idx >= len(g.questions) {
		g.finish()
		return append(events, g.finishedEvent())
	}
	return append(events, g.questionEvent())
}

// questionEvent opens the next question and starts its answer window.
func (g *Game) questionEvent() engine.Event {
	g.deadline = g.now().Add(g.cfg.QuestionTimeout)
	q := g.questions[g.idx]
	return engine.Broadcast("quiz_next_question", map[string]any{
		"question": map[string]any{
			"index":    g.idx,
			"question": q.Question,
			"options":  q.Options,
		},
		"timeLimit": g.cfg.QuestionTimeout.Seconds(),
	})
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
	if g.idx < len(g.questions) {
		st["correctAnswer"] = g.questions[g.idx].Correct
	}
	return st
}

// StateFor hides the correct answer while the question is open.
func (g *Game) StateFor(playerID string) map[string]any {
	st := g.snapshotShared()
	_, answered := g.answers[playerID]
	st["youAnswered"] = answered
	return st
}

func (g *Game) snapshotShared() map[string]any {
	st := map[string]any{
		"gameType":       GameType,
		"room":           g.roomID,
		"status":         g.roster.Status(),
		"players":        g.roster.Players(),
		"questionIndex":  g.idx,
		"totalQuestions": len(g.questions),
		"format":         g.cfg.Format,
		"scores":         g.scores(),
		"winner":         g.winner,
	}
	if g.idx < len(g.questions) {
		q := g.questions[g.idx]
		st["question"] = map[string]any{"question": q.Question, "options": q.Options}
	}
	if g.cfg.Format == "2v2" {
		st["teamScores"] = g.teamScores()
	}
	return st
}

// Turn arms one room-wide timer per question. The window is fixed at the
// moment the question goes out, so a re-armed timer gets the residual and
// mid-question events cannot stretch the deadline.
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
