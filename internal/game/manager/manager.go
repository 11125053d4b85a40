package manager

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
	"github.com/MmmDelicious/lovememory-sub002/internal/engine/room"
	"github.com/MmmDelicious/lovememory-sub002/internal/utils"
	"github.com/MmmDelicious/lovememory-sub002/internal/websocket"
)

// GameManager owns every live room and routes transport messages into the
// right room's serialized action path. Rooms never talk to each other.
type GameManager struct {
	mu           sync.RWMutex
	rooms        map[string]*room.Room
	playerToRoom map[string]string
	hub          websocket.HubInterface
	registry     *engine.Registry
	sched        room.Scheduler

	// invoked after a room's game reaches the finished state and the room
	// is already unregistered; used for result persistence
	OnRoomFinished func(roomID string, state map[string]any)
}

func New(hub websocket.HubInterface, registry *engine.Registry) *GameManager {
	return &GameManager{
		rooms:        make(map[string]*room.Room),
		playerToRoom: make(map[string]string),
		hub:          hub,
		registry:     registry,
	}
}

// CreateRoom builds the session through the factory registry and starts
// its room loop.
func (m *GameManager) CreateRoom(roomID, gameType string, players []engine.Player, s engine.Settings) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; ok {
		return nil, fmt.Errorf("room %s already exists", roomID)
	}

	game, err := m.registry.Create(gameType, roomID, players, s)
	if err != nil {
		return nil, err
	}

	r := room.New(roomID, game, m.hub, m.sched)
	r.OnFinished = m.roomFinished
	m.rooms[roomID] = r
	for _, p := range players {
		m.playerToRoom[p.ID] = roomID
	}

	r.Start()
	utils.Print.Info("room started", "room", roomID, "game", gameType, "players", len(players))
	return r, nil
}

func (m *GameManager) Room(roomID string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

func (m *GameManager) RoomOf(playerID string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[m.playerToRoom[playerID]]
	return r, ok
}

func (m *GameManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// CloseRoom tears a room down without waiting for the game to finish.
func (m *GameManager) CloseRoom(roomID string) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if ok {
		delete(m.rooms, roomID)
		for id, rid := range m.playerToRoom {
			if rid == roomID {
				delete(m.playerToRoom, id)
			}
		}
	}
	m.mu.Unlock()
	if ok {
		r.Close()
	}
}

func (m *GameManager) roomFinished(roomID string, state map[string]any) {
	m.CloseRoom(roomID)
	utils.Print.Info("room finished", "room", roomID)
	if m.OnRoomFinished != nil {
		m.OnRoomFinished(roomID, state)
	}
}

// actionPayload is the wire framing of one game action.
type actionPayload struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type chatPayload struct {
	Text string `json:"text"`
}

// HandlePlayerMessage is the single entry point from Hub.OnIncoming.
func (m *GameManager) HandlePlayerMessage(msg websocket.IncomingMessage) {
	switch msg.Event {
	case "player_action":
		r, ok := m.RoomOf(msg.From)
		if !ok {
			m.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
				Event: "action_rejected",
				Data:  map[string]any{"reason": "not in a room"},
			})
			return
		}
		var ap actionPayload
		if err := json.Unmarshal(msg.Data, &ap); err != nil || ap.Kind == "" {
			m.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
				Event: "action_rejected",
				Data:  map[string]any{"reason": "malformed action"},
			})
			return
		}
		r.EnqueueAction(msg.From, engine.Action{Kind: ap.Kind, Data: ap.Payload})

	case "join_room":
		var jp joinPayload
		if err := json.Unmarshal(msg.Data, &jp); err != nil || jp.RoomID == "" {
			return
		}
		r, ok := m.Room(jp.RoomID)
		if !ok {
			m.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
				Event: "action_rejected",
				Data:  map[string]any{"reason": "no such room"},
			})
			return
		}
		m.mu.Lock()
		m.playerToRoom[msg.From] = jp.RoomID
		m.mu.Unlock()
		r.EnqueueJoin(engine.Player{ID: msg.From, Name: jp.Name})

	case "leave_room":
		r, ok := m.RoomOf(msg.From)
		if !ok {
			return
		}
		m.mu.Lock()
		delete(m.playerToRoom, msg.From)
		m.mu.Unlock()
		r.EnqueueLeave(msg.From)

	case "chat":
		var cp chatPayload
		if err := json.Unmarshal(msg.Data, &cp); err != nil || cp.Text == "" {
			return
		}
		// membership comes from the manager's own index; the game state
		// belongs to the room loop and is never read from this goroutine
		members := m.roommates(msg.From)
		if len(members) == 0 {
			return
		}
		m.hub.BroadcastToPlayers(members, websocket.OutgoingMessage{
			Event: "chat",
			Data:  map[string]any{"from": msg.From, "text": cp.Text},
		})
	}
}

// roommates returns every player mapped to the same room as the given
// player, or nil when they are not in a room.
func (m *GameManager) roommates(playerID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.playerToRoom[playerID]
	if !ok {
		return nil
	}
	var out []string
	for id, rid := range m.playerToRoom {
		if rid == roomID {
			out = append(out, id)
		}
	}
	return out
}
