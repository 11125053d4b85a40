package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MmmDelicious/lovememory-sub002/internal/websocket"
)

// HubBroadcaster is the slice of the websocket hub the lobby needs.
type HubBroadcaster interface {
	BroadcastToPlayers(ids []string, msg websocket.OutgoingMessage)
}

// Service forms tables out of queued players. When a queue reaches the
// requested table size it pops the players, notifies them over the hub
// and hands the match to OnMatch.
type Service struct {
	repo      Repo
	playerTTL int // seconds, bounds stale queue entries
	hub       HubBroadcaster
	known     func(gameType string) bool

	OnMatch func(*Match)
}

func NewService(repo Repo, playerTTL int, hub HubBroadcaster, known func(string) bool) *Service {
	return &Service{repo: repo, playerTTL: playerTTL, hub: hub, known: known}
}

// Join queues the player and tries to form a table right away. Returns
// the match when one formed, or queued=true otherwise.
func (s *Service) Join(ctx context.Context, playerID string, req JoinRequest) (*Match, bool, error) {
	if req.TableSize <= 1 {
		return nil, false, fmt.Errorf("invalid tableSize %d", req.TableSize)
	}
	if s.known != nil && !s.known(req.GameType) {
		return nil, false, fmt.Errorf("unknown game type %q", req.GameType)
	}

	// a player already seated at a live table cannot queue again
	if checker, ok := s.repo.(interface {
		GetPlayerMatch(ctx context.Context, playerID string) (string, error)
	}); ok {
		matchID, _ := checker.GetPlayerMatch(ctx, playerID)
		if matchID != "" {
			return nil, false, fmt.Errorf("player %s already in match %s", playerID, matchID)
		}
	}

	if err := s.repo.Enqueue(ctx, req.GameType, req.TableSize, playerID, s.playerTTL); err != nil {
		return nil, false, err
	}
	cnt, err := s.repo.Count(ctx, req.GameType, req.TableSize)
	if err != nil {
		return nil, false, err
	}
	if int(cnt) < req.TableSize {
		return nil, true, nil
	}
	ids, err := s.repo.PopNRandom(ctx, req.GameType, req.TableSize, req.TableSize)
	if err != nil {
		return nil, false, err
	}
	if len(ids) < req.TableSize {
		// lost the race against a concurrent Join, stay queued
		return nil, true, nil
	}

	m := &Match{
		ID:        uuid.NewString(),
		GameType:  req.GameType,
		TableSize: req.TableSize,
		Players:   ids,
		CreatedAt: time.Now(),
	}

	if saver, ok := s.repo.(interface {
		SaveMatch(context.Context, *Match, int) error
	}); ok {
		if err := saver.SaveMatch(ctx, m, s.playerTTL); err != nil {
			return nil, false, err
		}
	}

	s.hub.BroadcastToPlayers(ids, websocket.OutgoingMessage{
		Event: "matched",
		Data: map[string]any{
			"roomId":    m.ID,
			"gameType":  m.GameType,
			"tableSize": m.TableSize,
			"players":   m.Players,
		},
	})

	if s.OnMatch != nil {
		go s.OnMatch(m)
	}
	return m, false, nil
}

// Cancel removes the player from their queue.
func (s *Service) Cancel(ctx context.Context, playerID string) error {
	return s.repo.Remove(ctx, playerID)
}

// Release clears the live-match index for a finished room so its players
// can queue again.
func (s *Service) Release(ctx context.Context, m *Match) error {
	if clearer, ok := s.repo.(interface {
		ClearMatch(context.Context, *Match) error
	}); ok {
		return clearer.ClearMatch(ctx, m)
	}
	return nil
}
