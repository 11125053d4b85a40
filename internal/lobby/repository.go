package lobby

import "context"

// Repo abstracts the matchmaking queues. A queue is keyed by game type
// plus table size.
type Repo interface {
	// Enqueue adds a player to the queue. The TTL bounds how long a
	// stale entry may linger.
	Enqueue(ctx context.Context, gameType string, tableSize int, playerID string, ttlSeconds int) error
	// PopNRandom atomically removes and returns n random queued players,
	// or an empty slice when the queue holds fewer than n.
	PopNRandom(ctx context.Context, gameType string, tableSize int, n int) ([]string, error)
	// Remove takes a player out of whatever queue they are in.
	Remove(ctx context.Context, playerID string) error
	// Count reports the queue length.
	Count(ctx context.Context, gameType string, tableSize int) (int64, error)
}
