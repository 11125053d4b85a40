package lobby

import "time"

// JoinRequest asks to be matched into a table of the given game type.
// The player identity comes from the authenticated connection, not the body.
type JoinRequest struct {
	GameType  string `json:"gameType" binding:"required"`
	TableSize int    `json:"tableSize" binding:"required"`
}

// JoinResponse reports queue state, or the match when one formed.
type JoinResponse struct {
	Queued    bool     `json:"queued"`
	RoomID    string   `json:"roomId,omitempty"`
	Players   []string `json:"players,omitempty"`
	GameType  string   `json:"gameType"`
	TableSize int      `json:"tableSize"`
}

// Match is a formed table waiting for its game room to start.
type Match struct {
	ID        string
	GameType  string
	TableSize int
	Players   []string
	CreatedAt time.Time
}
