package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"
)

var DB *sql.DB

func InitPostgres(dsn string) error {
	var err error
	DB, err = sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := DB.Ping(); err != nil {
		return err
	}
	return migrate(DB)
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_results (
            id          BIGSERIAL PRIMARY KEY,
            room_id     TEXT        NOT NULL,
            game_type   TEXT        NOT NULL,
            winner      TEXT        NOT NULL DEFAULT '',
            final_state JSONB       NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`)
	return err
}

// GameResult is one finished session as stored.
type GameResult struct {
	ID         int64
	RoomID     string
	GameType   string
	Winner     string
	FinalState json.RawMessage
	FinishedAt time.Time
}

// ResultStore persists finished sessions.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

// SaveResult records a finished room. The final snapshot goes in as JSON,
// winner may be empty for draws and abandoned games.
func (s *ResultStore) SaveResult(roomID, gameType, winner string, finalState map[string]any) error {
	data, err := json.Marshal(finalState)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO game_results (room_id, game_type, winner, final_state) VALUES ($1, $2, $3, $4)`,
		roomID, gameType, winner, data,
	)
	return err
}

// RecentResults returns the latest finished sessions, newest first.
func (s *ResultStore) RecentResults(limit int) ([]GameResult, error) {
	rows, err := s.db.Query(
		`SELECT id, room_id, game_type, winner, final_state, finished_at
         FROM game_results ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		var r GameResult
		if err := rows.Scan(&r.ID, &r.RoomID, &r.GameType, &r.Winner, &r.FinalState, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
