package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds one live session for a room.
type Factory func(roomID string, players []Player, s Settings) (GameEngine, error)

// Registry maps gameType -> Factory. It is an explicit value owned by the
// server context, not a package global, so tests can run isolated copies.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(gameType string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[gameType]; ok {
		return fmt.Errorf("game type %q already registered", gameType)
	}
	r.factories[gameType] = f
	return nil
}

func (r *Registry) Create(gameType, roomID string, players []Player, s Settings) (GameEngine, error) {
	r.mu.RLock()
	f, ok := r.factories[gameType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
	return f(roomID, players, s)
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
