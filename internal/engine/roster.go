package engine

import "time"

// MoveRecord is a history log entry; payloads are ephemeral by design.
type MoveRecord struct {
	Player string    `json:"player"`
	Kind   string    `json:"kind"`
	At     time.Time `json:"at"`
}

// Roster is the composed lifecycle helper shared by the variants: ordered
// seats, session status, current-player tracking and a move history. It
// replaces inheritance; each variant embeds a *Roster and layers its own
// rules on top.
type Roster struct {
	Min int
	Max int

	players []Player
	status  Status
	current int
	history []MoveRecord
}

func NewRoster(min, max int) *Roster {
	return &Roster{Min: min, Max: max, status: StatusWaiting}
}

func (r *Roster) Status() Status     { return r.status }
func (r *Roster) SetStatus(s Status) { r.status = s }
func (r *Roster) Len() int           { return len(r.players) }
func (r *Roster) Full() bool         { return len(r.players) >= r.Max }
func (r *Roster) CurrentIndex() int  { return r.current }
func (r *Roster) SetCurrent(i int)   { r.current = i }

func (r *Roster) Add(p Player) error {
	if _, ok := r.Get(p.ID); ok {
		return Invalid("player %s already seated", p.ID)
	}
	if r.Full() {
		return Invalid("room is full")
	}
	p.Seat = len(r.players)
	r.players = append(r.players, p)
	return nil
}

func (r *Roster) Remove(id string) (Player, bool) {
	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			for j := range r.players {
				r.players[j].Seat = j
			}
			if r.current >= len(r.players) && len(r.players) > 0 {
				r.current = 0
			}
			return p, true
		}
	}
	return Player{}, false
}

func (r *Roster) Get(id string) (*Player, bool) {
	for i := range r.players {
		if r.players[i].ID == id {
			return &r.players[i], true
		}
	}
	return nil, false
}

func (r *Roster) IndexOf(id string) int {
	for i := range r.players {
		if r.players[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Roster) Players() []Player {
	out := make([]Player, len(r.players))
	copy(out, r.players)
	return out
}

func (r *Roster) IDs() []string {
	out := make([]string, len(r.players))
	for i, p := range r.players {
		out[i] = p.ID
	}
	return out
}

func (r *Roster) Current() *Player {
	if len(r.players) == 0 || r.current < 0 || r.current >= len(r.players) {
		return nil
	}
	return &r.players[r.current]
}

func (r *Roster) CurrentID() string {
	if p := r.Current(); p != nil {
		return p.ID
	}
	return ""
}

// Advance moves the turn to the next player passing the eligibility filter.
// With no eligible player the index is left untouched.
func (r *Roster) Advance(eligible func(Player) bool) {
	n := len(r.players)
	if n == 0 {
		return
	}
	for step := 1; step <= n; step++ {
		idx := (r.current + step) % n
		if eligible == nil || eligible(r.players[idx]) {
			r.current = idx
			return
		}
	}
}

// CheckMember rejects actions from outsiders or outside a live session.
// Used directly by simultaneous-input variants.
func (r *Roster) CheckMember(playerID string) error {
	if r.status != StatusInProgress {
		return WrongPhase(string(r.status), "game is not in progress")
	}
	if _, ok := r.Get(playerID); !ok {
		return Invalid("player %s is not in this game", playerID)
	}
	return nil
}

// CheckTurn additionally enforces turn order.
func (r *Roster) CheckTurn(playerID string) error {
	if err := r.CheckMember(playerID); err != nil {
		return err
	}
	if r.CurrentID() != playerID {
		return Invalid("not your turn")
	}
	return nil
}

func (r *Roster) Record(player, kind string) {
	r.history = append(r.history, MoveRecord{Player: player, Kind: kind, At: time.Now()})
}

func (r *Roster) History() []MoveRecord {
	out := make([]MoveRecord, len(r.history))
	copy(out, r.history)
	return out
}
