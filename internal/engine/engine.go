package engine

import (
	"encoding/json"
	"time"
)

// ---------------------
//   SESSION LIFECYCLE
// ---------------------

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Player is the roster-level view of a participant. Variants keep their own
// richer seat structs (stacks, clocks, roles) keyed by Player.ID.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Seat   int    `json:"seat"`
	Team   string `json:"team,omitempty"`
	Role   string `json:"role,omitempty"`
	Status string `json:"status"`
	Score  int    `json:"score"`
}

// ---------------------
//   ACTION DEFINITION
// ---------------------

// Action is the discriminated payload delivered by the transport layer.
// Kind selects the variant-specific move struct encoded in Data.
type Action struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Synthetic kinds injected by the room loop, never by the transport.
const (
	KindTimeout = "timeout"
	KindLeave   = "leave"
)

// Decode unmarshals the action payload into a variant move struct.
func (a Action) Decode(v any) error {
	if len(a.Data) == 0 {
		return nil
	}
	return json.Unmarshal(a.Data, v)
}

// NewAction builds an action with an encoded payload. Panics are not
// possible here: payload structs are plain data.
func NewAction(kind string, payload any) Action {
	if payload == nil {
		return Action{Kind: kind}
	}
	data, _ := json.Marshal(payload)
	return Action{Kind: kind, Data: data}
}

// ---------------------
//        EVENTS
// ---------------------

// Event is a named notification produced by a mutation. To == "" means
// broadcast to the whole room, otherwise it targets a single player.
type Event struct {
	Type string
	To   string
	Data map[string]any
}

func Broadcast(typ string, data map[string]any) Event {
	return Event{Type: typ, Data: data}
}

func Direct(to, typ string, data map[string]any) Event {
	return Event{Type: typ, To: to, Data: data}
}

// ---------------------
//     GAME CONTRACT
// ---------------------

// GameEngine is the session state machine contract shared by every variant.
// Implementations are not safe for concurrent use; the room loop serializes
// all calls for one session.
type GameEngine interface {
	// Type returns the registry key, e.g. "tic_tac_toe" or "poker".
	Type() string
	Status() Status
	PlayerIDs() []string

	// AddPlayer seats (or, mid-game, observes) a new participant.
	AddPlayer(p Player) ([]Event, error)
	// RemovePlayer is an implicit fold/resignation when the game is live.
	RemovePlayer(id string) ([]Event, error)

	// Apply validates and executes one action. A rejection (ValidationError,
	// PhaseError) leaves state untouched. Kind "timeout" must always succeed
	// by falling back to a guaranteed-legal default.
	Apply(playerID string, act Action) ([]Event, error)

	// State is the authoritative snapshot; StateFor redacts hidden
	// information (hole cards, face-down cells, unrevealed colors) for one
	// player.
	State() map[string]any
	StateFor(playerID string) map[string]any

	// Turn reports the pending timer: the player whose input is awaited
	// ("" for room-wide or scheduled phases) and the timeout. ok == false
	// means no timer should be armed.
	Turn() (playerID string, timeout time.Duration, ok bool)
}
