package room

import (
	"sync"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
	"github.com/MmmDelicious/lovememory-sub002/internal/utils"
	"github.com/MmmDelicious/lovememory-sub002/internal/websocket"
)

const (
	itemAction = iota
	itemTimeout
	itemJoin
	itemLeave
)

type item struct {
	typ    int
	player string
	act    engine.Action
	join   engine.Player
	seq    uint64 // timer epoch, timeouts only
}

// Room owns one live game session. Every mutation, including timer expiry,
// flows through a single buffered channel consumed by one goroutine, so no
// two actions ever touch the session concurrently. Rooms are independent of
// each other.
type Room struct {
	ID   string
	Game engine.GameEngine

	hub   websocket.HubInterface
	sched Scheduler

	items chan item
	quit  chan struct{}
	once  sync.Once

	// turn epoch; a timeout carrying a stale epoch is dropped. Bumped after
	// every applied mutation, so a timer that fired concurrently with a real
	// action can never forfeit the next turn.
	seq        uint64
	stopTimer  CancelFunc
	OnFinished func(roomID string, state map[string]any)
}

func New(id string, game engine.GameEngine, hub websocket.HubInterface, sched Scheduler) *Room {
	if sched == nil {
		sched = NewScheduler()
	}
	return &Room{
		ID:    id,
		Game:  game,
		hub:   hub,
		sched: sched,
		items: make(chan item, 32), // headroom so timer callbacks never block
		quit:  make(chan struct{}),
	}
}

// Start broadcasts the opening snapshot and launches the mutation loop.
func (r *Room) Start() {
	r.broadcastState(nil)
	r.armTimer()
	go r.loop()
}

// Close cancels pending timers and releases the session. Idempotent.
func (r *Room) Close() {
	r.once.Do(func() { close(r.quit) })
}

// EnqueueAction is the transport entry point for player moves.
func (r *Room) EnqueueAction(player string, act engine.Action) {
	r.push(item{typ: itemAction, player: player, act: act})
}

// EnqueueJoin routes a late join through the serialized path.
func (r *Room) EnqueueJoin(p engine.Player) {
	r.push(item{typ: itemJoin, join: p})
}

// EnqueueLeave routes a leave through the serialized path.
func (r *Room) EnqueueLeave(player string) {
	r.push(item{typ: itemLeave, player: player})
}

func (r *Room) push(it item) {
	select {
	case r.items <- it:
	case <-r.quit:
	}
}

func (r *Room) loop() {
	for {
		select {
		case it := <-r.items:
			r.handle(it)
		case <-r.quit:
			r.cancelTimer()
			return
		}
	}
}

func (r *Room) handle(it item) {
	if it.typ == itemTimeout && it.seq != r.seq {
		return // a real action already consumed this turn
	}
	r.cancelTimer()

	var events []engine.Event
	var err error

	switch it.typ {
	case itemJoin:
		events, err = r.Game.AddPlayer(it.join)
	case itemLeave:
		events, err = r.Game.RemovePlayer(it.player)
	case itemTimeout:
		events, err = r.Game.Apply(it.player, engine.Action{Kind: engine.KindTimeout})
	default:
		events, err = r.Game.Apply(it.player, it.act)
	}

	if err != nil {
		if engine.IsRejection(err) {
			r.hub.SendToPlayer(it.player, websocket.OutgoingMessage{
				Event: "action_rejected",
				Data:  map[string]any{"room": r.ID, "reason": err.Error()},
			})
			r.armTimer() // turn unchanged, restore its deadline
			return
		}
		// invariant violation: surface to this room only
		utils.Print.Error("fatal game error", "room", r.ID, "err", err)
		r.hub.BroadcastToPlayers(r.Game.PlayerIDs(), websocket.OutgoingMessage{
			Event: "game_error",
			Data:  map[string]any{"room": r.ID, "reason": err.Error()},
		})
	}

	r.seq++
	r.broadcastState(events)

	if r.Game.Status() == engine.StatusFinished {
		if r.OnFinished != nil {
			go r.OnFinished(r.ID, r.Game.State())
		}
		return
	}
	r.armTimer()
}

// armTimer schedules the pending turn deadline, if the session wants one.
// The fired callback re-enters through the items channel with the current
// epoch stamped on it.
func (r *Room) armTimer() {
	player, d, ok := r.Game.Turn()
	if !ok || r.Game.Status() == engine.StatusFinished {
		return
	}
	seq := r.seq
	r.stopTimer = r.sched.Schedule(d, func() {
		r.push(item{typ: itemTimeout, player: player, seq: seq})
	})
}

func (r *Room) cancelTimer() {
	if r.stopTimer != nil {
		r.stopTimer()
		r.stopTimer = nil
	}
}

// broadcastState sends discrete events, then one redacted snapshot per
// player. Fire-and-forget: the hub delivers asynchronously and never blocks
// the next mutation.
func (r *Room) broadcastState(events []engine.Event) {
	ids := r.Game.PlayerIDs()
	for _, ev := range events {
		msg := websocket.OutgoingMessage{Event: ev.Type, Data: ev.Data}
		if ev.To == "" {
			r.hub.BroadcastToPlayers(ids, msg)
		} else {
			r.hub.SendToPlayer(ev.To, msg)
		}
	}
	for _, id := range ids {
		r.hub.SendToPlayer(id, websocket.OutgoingMessage{
			Event: "game_state",
			Data:  r.Game.StateFor(id),
		})
	}
}
