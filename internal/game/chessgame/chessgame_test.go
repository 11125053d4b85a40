package chessgame

import (
	"testing"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

// fakeClock lets the tests charge exact thinking time.
type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestGame(t *testing.T) (*Game, *fakeClock) {
	t.Helper()
	eng, err := New("room-test", []engine.Player{
		{ID: "white-p", Name: "White"},
		{ID: "black-p", Name: "Black"},
	}, engine.Settings{InitialTime: time.Minute, Increment: 5 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g := eng.(*Game)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	g.now = clock.Now
	g.lastTick = clock.t
	return g, clock
}

func move(t *testing.T, g *Game, id, mv string) []engine.Event {
	t.Helper()
	evs, err := g.Apply(id, engine.NewAction(kindMove, movePayload{Move: mv}))
	if err != nil {
		t.Fatalf("%s move %s: %v", id, mv, err)
	}
	return evs
}

func TestLegalMovesAlternateTurns(t *testing.T) {
	g, _ := newTestGame(t)

	move(t, g, "white-p", "e2e4")
	if id, _, _ := g.Turn(); id != "black-p" {
		t.Fatalf("turn = %q, want black-p", id)
	}
	// algebraic notation is accepted as a fallback
	move(t, g, "black-p", "Nf6")
	if id, _, _ := g.Turn(); id != "white-p" {
		t.Fatalf("turn = %q, want white-p", id)
	}
}

func TestIllegalMoveRejectedWithoutClockCharge(t *testing.T) {
	g, clock := newTestGame(t)
	clock.advance(10 * time.Second)

	_, err := g.Apply("white-p", engine.NewAction(kindMove, movePayload{Move: "e2e5"}))
	if !engine.IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	// the rejected move must not touch the clock
	if g.remaining[g.colorOf("white-p")] != time.Minute {
		t.Fatalf("clock charged on rejection: %v", g.remaining)
	}
}

func TestClockChargedAndIncrementCredited(t *testing.T) {
	g, clock := newTestGame(t)
	clock.advance(20 * time.Second)

	move(t, g, "white-p", "e2e4")
	white := g.remaining[g.colorOf("white-p")]
	// 60s - 20s thinking + 5s increment
	if white != 45*time.Second {
		t.Fatalf("white clock = %v, want 45s", white)
	}
	if g.remaining[g.colorOf("black-p")] != time.Minute {
		t.Fatalf("black clock moved before black's turn")
	}
}

func TestFlagFallForfeits(t *testing.T) {
	g, _ := newTestGame(t)

	evs, err := g.Apply("white-p", engine.Action{Kind: engine.KindTimeout})
	if err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if g.Status() != engine.StatusFinished || g.winner != "black-p" {
		t.Fatalf("status=%s winner=%q", g.Status(), g.winner)
	}
	var reason any
	for _, e := range evs {
		if e.Type == "game_finished" {
			reason = e.Data["reason"]
		}
	}
	if reason != "timeout" {
		t.Fatalf("reason = %v, want timeout", reason)
	}
}

func TestCaptureRecorded(t *testing.T) {
	g, _ := newTestGame(t)
	move(t, g, "white-p", "e2e4")
	move(t, g, "black-p", "d7d5")
	move(t, g, "white-p", "e4d5") // pawn takes pawn

	black := g.colorOf("black-p")
	if len(g.captured[black]) != 1 {
		t.Fatalf("captured = %v, want one black piece", g.captured)
	}
}

func TestDrawOfferFlow(t *testing.T) {
	g, _ := newTestGame(t)

	if _, err := g.Apply("white-p", engine.NewAction(kindAcceptDraw, nil)); !engine.IsRejection(err) {
		t.Fatalf("accept with no pending offer: %v", err)
	}

	if _, err := g.Apply("white-p", engine.NewAction(kindOfferDraw, nil)); err != nil {
		t.Fatalf("offer: %v", err)
	}
	// the offerer cannot accept their own offer
	if _, err := g.Apply("white-p", engine.NewAction(kindAcceptDraw, nil)); !engine.IsRejection(err) {
		t.Fatalf("self-accept: %v", err)
	}

	if _, err := g.Apply("black-p", engine.NewAction(kindDeclineDraw, nil)); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if g.drawFrom != "" {
		t.Fatalf("declined offer still pending")
	}

	// a fresh offer accepted by the opponent draws the game
	if _, err := g.Apply("black-p", engine.NewAction(kindOfferDraw, nil)); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if _, err := g.Apply("white-p", engine.NewAction(kindAcceptDraw, nil)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if g.winner != "draw" {
		t.Fatalf("winner = %q, want draw", g.winner)
	}
}

func TestMoveClearsPendingOffer(t *testing.T) {
	g, _ := newTestGame(t)
	if _, err := g.Apply("black-p", engine.NewAction(kindOfferDraw, nil)); err != nil {
		t.Fatalf("offer: %v", err)
	}
	move(t, g, "white-p", "e2e4")
	if g.drawFrom != "" {
		t.Fatalf("move should clear the draw offer")
	}
}

func TestScholarsMateFinishes(t *testing.T) {
	g, _ := newTestGame(t)
	seq := []struct{ id, mv string }{
		{"white-p", "e2e4"}, {"black-p", "e7e5"},
		{"white-p", "d1h5"}, {"black-p", "b8c6"},
		{"white-p", "f1c4"}, {"black-p", "g8f6"},
		{"white-p", "h5f7"},
	}
	for _, s := range seq {
		move(t, g, s.id, s.mv)
	}
	if g.Status() != engine.StatusFinished || g.winner != "white-p" {
		t.Fatalf("status=%s winner=%q", g.Status(), g.winner)
	}
}

func TestResignOnLeave(t *testing.T) {
	g, _ := newTestGame(t)
	if _, err := g.RemovePlayer("black-p"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if g.winner != "white-p" {
		t.Fatalf("winner = %q, want white-p", g.winner)
	}
}

func TestRejectedMoveCannotRewindTurnTimer(t *testing.T) {
	g, clock := newTestGame(t)
	clock.advance(50 * time.Second)

	_, err := g.Apply("white-p", engine.NewAction(kindMove, movePayload{Move: "e2e5"}))
	if !engine.IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	// the timer re-armed after a rejection gets the residual clock, not
	// a fresh full one
	id, d, ok := g.Turn()
	if !ok || id != "white-p" {
		t.Fatalf("turn = %q ok=%v", id, ok)
	}
	if d != 10*time.Second {
		t.Fatalf("re-armed timer = %v, want the 10s actually left", d)
	}

	clock.advance(15 * time.Second)
	if _, d, _ := g.Turn(); d != 0 {
		t.Fatalf("overdrawn clock = %v, want 0", d)
	}
}

func TestTurnExposesRemainingClock(t *testing.T) {
	g, clock := newTestGame(t)
	clock.advance(30 * time.Second)
	move(t, g, "white-p", "e2e4")

	id, d, ok := g.Turn()
	if !ok || id != "black-p" {
		t.Fatalf("turn = %q ok=%v", id, ok)
	}
	if d != time.Minute {
		t.Fatalf("black timer = %v, want full minute", d)
	}
}
