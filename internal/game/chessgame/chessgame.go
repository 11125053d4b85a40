package chessgame

import (
	"time"

	"github.com/notnil/chess"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
)

const GameType = "chess"

const (
	kindMove        = "move"
	kindOfferDraw   = "offer_draw"
	kindAcceptDraw  = "accept_draw"
	kindDeclineDraw = "decline_draw"
	kindResign      = "resign"
)

type movePayload struct {
	Move string `json:"move"` // UCI ("e2e4") or algebraic ("Nf3")
}

var defaults = engine.Settings{
	MinPlayers:  2,
	MaxPlayers:  2,
	InitialTime: 10 * time.Minute,
	Increment:   5 * time.Second,
}

// Game wraps the external rules engine: legality, check and mate detection
// are fully delegated. The session adds per-color clocks with
// increment-after-move semantics, draw offers and resignation. Seat 0 plays
// white. A flag fall is a forfeit, never an auto-move.
type Game struct {
	roomID string
	roster *engine.Roster
	cfg    engine.Settings

	game      *chess.Game
	remaining map[chess.Color]time.Duration
	lastTick  time.Time
	captured  map[chess.Color][]string // pieces lost by that color
	drawFrom  string                   // player id with a pending draw offer
	winner    string
	now       func() time.Time
}

func New(roomID string, players []engine.Player, s engine.Settings) (engine.GameEngine, error) {
	cfg := s.WithDefaults(defaults)
	g := &Game{
		roomID: roomID,
		roster: engine.NewRoster(cfg.MinPlayers, cfg.MaxPlayers),
		cfg:    cfg,
		game:   chess.NewGame(),
		remaining: map[chess.Color]time.Duration{
			chess.White: cfg.InitialTime,
			chess.Black: cfg.InitialTime,
		},
		captured: map[chess.Color][]string{},
		now:      time.Now,
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
		g.lastTick = g.now()
		events = append(events, engine.Broadcast("game_started", map[string]any{
			"room":    g.roomID,
			"white":   g.playerAt(0),
			"black":   g.playerAt(1),
			"initial": g.cfg.InitialTime.Seconds(),
		}))
	}
	return events, nil
}

func (g *Game) RemovePlayer(id string) ([]engine.Event, error) {
	if g.roster.Status() == engine.StatusInProgress {
		if _, ok := g.roster.Get(id); ok {
			events, _ := g.resign(id)
			g.roster.Remove(id)
			return events, nil
		}
	}
	if _, ok := g.roster.Remove(id); !ok {
		return nil, engine.Invalid("player %s is not in this game", id)
	}
	return nil, nil
}

func (g *Game) Apply(playerID string, act engine.Action) ([]engine.Event, error) {
	switch act.Kind {
	case engine.KindTimeout:
		return g.applyFlagFall(playerID)
	case kindMove:
		var mv movePayload
		if err := act.Decode(&mv); err != nil || mv.Move == "" {
			return nil, engine.Invalid("malformed move payload")
		}
		if err := g.roster.CheckTurn(playerID); err != nil {
			return nil, err
		}
		return g.applyMove(playerID, mv.Move)
	case kindOfferDraw:
		return g.offerDraw(playerID)
	case kindAcceptDraw:
		return g.acceptDraw(playerID)
	case kindDeclineDraw:
		return g.declineDraw(playerID)
	case kindResign:
		if err := g.roster.CheckMember(playerID); err != nil {
			return nil, err
		}
		return g.resign(playerID)
	default:
		return nil, engine.Invalid("unknown action %q", act.Kind)
	}
}

func (g *Game) applyMove(playerID, moveStr string) ([]engine.Event, error) {
	color := g.colorOf(playerID)
	pos := g.game.Position()

	// capture bookkeeping needs the target square before the move is made
	var capture string
	if m, err := (chess.UCINotation{}).Decode(pos, moveStr); err == nil {
		if pc := pos.Board().Piece(m.S2()); pc != chess.NoPiece {
			capture = pc.String()
		}
		if err := g.game.Move(m); err != nil {
			return nil, engine.Invalid("illegal move %q", moveStr)
		}
	} else if err := g.game.MoveStr(moveStr); err != nil {
		return nil, engine.Invalid("illegal move %q", moveStr)
	}

	// clock is charged for the thinking time and credited the increment
	// only now that the move is known to be legal
	elapsed := g.now().Sub(g.lastTick)
	g.remaining[color] -= elapsed
	g.remaining[color] += g.cfg.Increment
	g.lastTick = g.now()

	if capture != "" {
		other := color.Other()
		g.captured[other] = append(g.captured[other], capture)
	}

	// any move clears an outstanding draw offer
	g.drawFrom = ""
	g.roster.Record(playerID, kindMove)
	g.roster.Advance(nil)

	events := []engine.Event{
		engine.Broadcast("chess_move_made", map[string]any{
			"player":  playerID,
			"move":    moveStr,
			"fen":     g.game.Position().String(),
			"capture": capture,
			"clocks":  g.clocks(),
		}),
	}

	if g.game.Outcome() != chess.NoOutcome {
		g.settleOutcome()
		events = append(events, g.finishedEvent(g.game.Method().String()))
	}
	return events, nil
}

// applyFlagFall forfeits the game on clock expiry.
func (g *Game) applyFlagFall(playerID string) ([]engine.Event, error) {
	if g.roster.Status() != engine.StatusInProgress || g.roster.CurrentID() != playerID {
		return nil, nil
	}
	color := g.colorOf(playerID)
	g.remaining[color] = 0
	g.game.Resign(color)
	g.roster.SetStatus(engine.StatusFinished)
	g.winner = g.opponentOf(playerID)
	return []engine.Event{
		engine.Broadcast("timeout_move", map[string]any{"player": playerID}),
		g.finishedEvent("timeout"),
	}, nil
}

func (g *Game) offerDraw(playerID string) ([]engine.Event, error) {
	if err := g.roster.CheckMember(playerID); err != nil {
		return nil, err
	}
	if g.drawFrom != "" {
		return nil, engine.Invalid("a draw offer is already pending")
	}
	g.drawFrom = playerID
	return []engine.Event{
		engine.Broadcast("draw_offered", map[string]any{"player": playerID}),
	}, nil
}

func (g *Game) acceptDraw(playerID string) ([]engine.Event, error) {
	if err := g.roster.CheckMember(playerID); err != nil {
		return nil, err
	}
	if g.drawFrom == "" || g.drawFrom == playerID {
		return nil, engine.Invalid("no draw offer to accept")
	}
	_ = g.game.Draw(chess.DrawOffer)
	g.roster.SetStatus(engine.StatusFinished)
	g.winner = "draw"
	return []engine.Event{g.finishedEvent("draw_agreed")}, nil
}

func (g *Game) declineDraw(playerID string) ([]engine.Event, error) {
	if err := g.roster.CheckMember(playerID); err != nil {
		return nil, err
	}
	if g.drawFrom == "" || g.drawFrom == playerID {
		return nil, engine.Invalid("no draw offer to decline")
	}
	g.drawFrom = ""
	return []engine.Event{
		engine.Broadcast("draw_declined", map[string]any{"player": playerID}),
	}, nil
}

func (g *Game) resign(playerID string) ([]engine.Event, error) {
	g.game.Resign(g.colorOf(playerID))
	g.roster.SetStatus(engine.StatusFinished)
	g.winner = g.opponentOf(playerID)
	return []engine.Event{
		engine.Broadcast("player_resigned", map[string]any{"player": playerID}),
		g.finishedEvent("resignation"),
	}, nil
}

func (g *Game) settleOutcome() {
	g.roster.SetStatus(engine.StatusFinished)
	switch g.game.Outcome() {
	case chess.WhiteWon:
		g.winner = g.playerAt(0)
	case chess.BlackWon:
		g.winner = g.playerAt(1)
	default:
		g.winner = "draw"
	}
}

func (g *Game) colorOf(playerID string) chess.Color {
	if g.roster.IndexOf(playerID) == 0 {
		return chess.White
	}
	return chess.Black
}

func (g *Game) playerAt(seat int) string {
	for _, p := range g.roster.Players() {
		if p.Seat == seat {
			return p.ID
		}
	}
	return ""
}

func (g *Game) opponentOf(playerID string) string {
	for _, id := range g.roster.IDs() {
		if id != playerID {
			return id
		}
	}
	return ""
}

func (g *Game) clocks() map[string]float64 {
	return map[string]float64{
		"white": g.remaining[chess.White].Seconds(),
		"black": g.remaining[chess.Black].Seconds(),
	}
}

func (g *Game) finishedEvent(reason string) engine.Event {
	return engine.Broadcast("game_finished", map[string]any{
		"room":   g.roomID,
		"winner": g.winner,
		"reason": reason,
	})
}

func (g *Game) State() map[string]any {
	return map[string]any{
		"gameType":      GameType,
		"room":          g.roomID,
		"status":        g.roster.Status(),
		"players":       g.roster.Players(),
		"fen":           g.game.Position().String(),
		"pgn":           g.game.String(),
		"currentPlayer": g.roster.CurrentID(),
		"clocks":        g.clocks(),
		"captured": map[string]any{
			"white": append([]string(nil), g.captured[chess.White]...),
			"black": append([]string(nil), g.captured[chess.Black]...),
		},
		"drawOfferFrom": g.drawFrom,
		"winner":        g.winner,
	}
}

// StateFor matches State: a chess position is public.
func (g *Game) StateFor(string) map[string]any { return g.State() }

// Turn exposes the mover's remaining clock as the room timer, so a flag
// fall arrives through the serialized action path.
func (g *Game) Turn() (string, time.Duration, bool) {
	if g.roster.Status() != engine.StatusInProgress {
		return "", 0, false
	}
	color := g.colorOf(g.roster.CurrentID())
	// charge the thinking time since the last tick so a re-armed timer
	// never hands back more clock than the mover actually has left
	d := g.remaining[color] - g.now().Sub(g.lastTick)
	if d < 0 {
		d = 0
	}
	return g.roster.CurrentID(), d, true
}
