package codenames

import (
	"testing"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

// seats in join order: t1 captain, t1 operative, t2 captain, t2 operative
func newTestGame(t *testing.T) *Game {
	t.Helper()
	eng, err := New("room-test", []engine.Player{
		{ID: "cap1"}, {ID: "op1"}, {ID: "cap2"}, {ID: "op2"},
	}, engine.Settings{Seed: 9})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng.(*Game)
}

// captain and operative of the team whose turn it is
func actors(g *Game) (string, string) {
	var cap, op string
	for _, p := range g.roster.Players() {
		if p.Team != g.currentTeam {
			continue
		}
		if p.Role == roleCaptain {
			cap = p.ID
		} else {
			op = p.ID
		}
	}
	return cap, op
}

func cardOfColor(g *Game, color string) int {
	for i, c := range g.cards {
		if c.Color == color && !c.Revealed {
			return i
		}
	}
	return -1
}

func giveClue(t *testing.T, g *Game, id, word string, count int) {
	t.Helper()
	if _, err := g.Apply(id, engine.NewAction(kindClue, clueMove{Word: word, Count: count})); err != nil {
		t.Fatalf("%s clue %q/%d: %v", id, word, count, err)
	}
}

func TestBoardComposition(t *testing.T) {
	g := newTestGame(t)
	counts := map[string]int{}
	for _, c := range g.cards {
		counts[c.Color]++
	}
	if counts[g.firstTeam] != 9 {
		t.Fatalf("first team cards = %d, want 9", counts[g.firstTeam])
	}
	if counts[otherTeam(g.firstTeam)] != 8 {
		t.Fatalf("second team cards = %d, want 8", counts[otherTeam(g.firstTeam)])
	}
	if counts[colorNeutral] != 7 || counts[colorAssassin] != 1 {
		t.Fatalf("neutral=%d assassin=%d", counts[colorNeutral], counts[colorAssassin])
	}
	if g.currentTeam != g.firstTeam {
		t.Fatalf("the 9-card team must open")
	}
}

func TestClueValidation(t *testing.T) {
	g := newTestGame(t)
	cap, op := actors(g)

	if _, err := g.Apply(op, engine.NewAction(kindClue, clueMove{Word: "sky", Count: 2})); !engine.IsRejection(err) {
		t.Fatalf("operative clue: %v", err)
	}
	if _, err := g.Apply(cap, engine.NewAction(kindClue, clueMove{Word: "two words", Count: 2})); !engine.IsRejection(err) {
		t.Fatalf("multi-word clue: %v", err)
	}
	if _, err := g.Apply(cap, engine.NewAction(kindClue, clueMove{Word: "sky", Count: 0})); !engine.IsRejection(err) {
		t.Fatalf("zero count: %v", err)
	}
	// a clue containing an unrevealed board word is forbidden
	board := g.cards[0].Word
	if _, err := g.Apply(cap, engine.NewAction(kindClue, clueMove{Word: board + "s", Count: 1})); !engine.IsRejection(err) {
		t.Fatalf("board word containment: %v", err)
	}

	giveClue(t, g, cap, "sky", 2)
	if g.current.GuessesLeft != 3 {
		t.Fatalf("guesses = %d, want count+1", g.current.GuessesLeft)
	}
	// only one clue per turn
	if _, err := g.Apply(cap, engine.NewAction(kindClue, clueMove{Word: "sea", Count: 1})); !engine.IsRejection(err) {
		t.Fatalf("second clue: %v", err)
	}
}

func TestOwnColorKeepsGuessing(t *testing.T) {
	g := newTestGame(t)
	cap, op := actors(g)
	giveClue(t, g, cap, "sky", 2)

	idx := cardOfColor(g, g.currentTeam)
	if _, err := g.Apply(op, engine.NewAction(kindGuess, guessMove{Index: idx})); err != nil {
		t.Fatalf("guess: %v", err)
	}
	if g.currentTeam != g.firstTeam || g.phase != phaseGuess {
		t.Fatalf("own-color hit should keep the turn")
	}
	if g.current.GuessesLeft != 2 {
		t.Fatalf("guesses = %d, want 2", g.current.GuessesLeft)
	}
}

func TestWrongColorEndsTurn(t *testing.T) {
	g := newTestGame(t)
	cap, op := actors(g)
	giveClue(t, g, cap, "sky", 2)

	idx := cardOfColor(g, colorNeutral)
	if _, err := g.Apply(op, engine.NewAction(kindGuess, guessMove{Index: idx})); err != nil {
		t.Fatalf("guess: %v", err)
	}
	if g.currentTeam != otherTeam(g.firstTeam) || g.phase != phaseClue {
		t.Fatalf("neutral hit should pass the turn, team=%s phase=%s", g.currentTeam, g.phase)
	}
	if g.current != nil {
		t.Fatalf("clue should clear on turn end")
	}
}

func TestAssassinLosesInstantly(t *testing.T) {
	g := newTestGame(t)
	cap, op := actors(g)
	giveClue(t, g, cap, "sky", 1)

	idx := cardOfColor(g, colorAssassin)
	evs, err := g.Apply(op, engine.NewAction(kindGuess, guessMove{Index: idx}))
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if g.Status() != engine.StatusFinished {
		t.Fatalf("assassin must end the game")
	}
	if g.winner != otherTeam(g.firstTeam) {
		t.Fatalf("winner = %q, want the opposing team", g.winner)
	}
	var reason any
	for _, e := range evs {
		if e.Type == "game_finished" {
			reason = e.Data["reason"]
		}
	}
	if reason != "assassin" {
		t.Fatalf("reason = %v", reason)
	}
}

func TestClearingAllCardsWins(t *testing.T) {
	g := newTestGame(t)
	cap, op := actors(g)

	// count 9 allows 10 guesses, enough to clear all 9 cards in one turn
	giveClue(t, g, cap, "sky", 9)
	for g.remainingFor(g.firstTeam) > 0 {
		idx := cardOfColor(g, g.firstTeam)
		if _, err := g.Apply(op, engine.NewAction(kindGuess, guessMove{Index: idx})); err != nil {
			t.Fatalf("guess: %v", err)
		}
	}
	if g.winner != g.firstTeam {
		t.Fatalf("winner = %q, want %q", g.winner, g.firstTeam)
	}
}

func TestPassEndsTurn(t *testing.T) {
	g := newTestGame(t)
	cap, op := actors(g)
	giveClue(t, g, cap, "sky", 2)

	if _, err := g.Apply(op, engine.NewAction(kindPass, nil)); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if g.currentTeam != otherTeam(g.firstTeam) {
		t.Fatalf("pass should hand the turn over")
	}
}

func TestTimeoutEndsTurnOnly(t *testing.T) {
	g := newTestGame(t)

	evs, err := g.Apply("", engine.Action{Kind: engine.KindTimeout})
	if err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if g.Status() != engine.StatusInProgress {
		t.Fatalf("a turn timeout must never end the game")
	}
	if g.currentTeam != otherTeam(g.firstTeam) {
		t.Fatalf("timeout should pass the turn")
	}
	if len(evs) == 0 || evs[0].Type != "timeout_move" {
		t.Fatalf("events = %+v", evs)
	}
}

func TestOperativeSnapshotHidesKey(t *testing.T) {
	g := newTestGame(t)
	_, op := actors(g)

	snap := g.StateFor(op)
	cells := snap["cards"].([]map[string]any)
	for _, cell := range cells {
		if _, leaked := cell["color"]; leaked {
			t.Fatalf("operative sees unrevealed colors")
		}
	}

	capSnap := g.StateFor("cap1")
	cells = capSnap["cards"].([]map[string]any)
	for _, cell := range cells {
		if _, ok := cell["color"]; !ok {
			t.Fatalf("captain must see the full key")
		}
	}
}

func TestLeaveForfeitsTeam(t *testing.T) {
	g := newTestGame(t)
	if _, err := g.RemovePlayer("op1"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if g.winner != colorTeam2 {
		t.Fatalf("winner = %q, want team2", g.winner)
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	if normalize("  Café ") != "cafe" {
		t.Fatalf("normalize = %q", normalize("  Café "))
	}
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestTurnReturnsResidualTeamWindow(t *testing.T) {
	g := newTestGame(t)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	g.now = clock.Now

	// pass the turn so the next one starts on the test clock
	if _, err := g.Apply("", engine.Action{Kind: engine.KindTimeout}); err != nil {
		t.Fatalf("timeout: %v", err)
	}

	clock.advance(30 * time.Second)
	cap, _ := actors(g)
	giveClue(t, g, cap, "river", 2)

	want := g.cfg.TurnTimeout - 30*time.Second
	if _, d, ok := g.Turn(); !ok || d != want {
		t.Fatalf("Turn() = %v, %v; want %v", d, ok, want)
	}

	clock.advance(g.cfg.TurnTimeout)
	if _, d, _ := g.Turn(); d != 0 {
		t.Fatalf("expired window returned %v, want 0", d)
	}
}
