package lobby

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// memRepo is the in-process queue store. TTLs are ignored, it exists for
// tests and single-node runs.
type memRepo struct {
	mu      sync.Mutex
	queues  map[string]map[string]struct{} // key -> set(playerID)
	players map[string]string              // playerID -> key
	rnd     *rand.Rand
}

func NewMemoryRepo() Repo {
	return &memRepo{
		queues:  make(map[string]map[string]struct{}),
		players: make(map[string]string),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func memKey(gameType string, tableSize int) string {
	return fmt.Sprintf("lobby:queue:%s:%d", gameType, tableSize)
}

func (m *memRepo) Enqueue(ctx context.Context, gameType string, tableSize int, playerID string, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(gameType, tableSize)
	if _, ok := m.queues[key]; !ok {
		m.queues[key] = make(map[string]struct{})
	}
	m.queues[key][playerID] = struct{}{}
	m.players[playerID] = key
	return nil
}

func (m *memRepo) PopNRandom(ctx context.Context, gameType string, tableSize int, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(gameType, tableSize)
	set, ok := m.queues[key]
	if !ok || len(set) < n {
		return []string{}, nil
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	m.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	chosen := ids[:n]

	for _, id := range chosen {
		delete(set, id)
		delete(m.players, id)
	}
	if len(set) == 0 {
		delete(m.queues, key)
	}
	return chosen, nil
}

func (m *memRepo) Remove(ctx context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.players[playerID]
	if !ok {
		return nil
	}
	if set, ok := m.queues[key]; ok {
		delete(set, playerID)
		if len(set) == 0 {
			delete(m.queues, key)
		}
	}
	delete(m.players, playerID)
	return nil
}

func (m *memRepo) Count(ctx context.Context, gameType string, tableSize int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queues[memKey(gameType, tableSize)])), nil
}
