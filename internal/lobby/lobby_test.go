package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	ws "github.com/MmmDelicious/lovememory-sub002/internal/websocket"
)

// mockHub records the last message broadcast to each player
type mockHub struct {
	mu   sync.Mutex
	msgs map[string]ws.OutgoingMessage
}

func newMockHub() *mockHub {
	return &mockHub{msgs: make(map[string]ws.OutgoingMessage)}
}

func (m *mockHub) BroadcastToPlayers(ids []string, msg ws.OutgoingMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.msgs[id] = msg
	}
}

func (m *mockHub) msg(id string) (ws.OutgoingMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	return msg, ok
}

func anyType(string) bool { return true }

func Test_MemoryRepo_MatchFlow(t *testing.T) {
	repo := NewMemoryRepo()
	hub := newMockHub()
	svc := NewService(repo, 60, hub, anyType)

	game := "tic_tac_toe"
	size := 3
	players := []string{"p1", "p2", "p3", "p4", "p5", "p6"}

	for i := 0; i < 2; i++ {
		_, queued, err := svc.Join(context.Background(), players[i], JoinRequest{GameType: game, TableSize: size})
		assert.NoError(t, err)
		assert.True(t, queued)
	}

	// third player completes the table
	m, queued, err := svc.Join(context.Background(), players[2], JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.False(t, queued)
	assert.NotNil(t, m)
	assert.Equal(t, size, len(m.Players))

	for _, p := range m.Players {
		msg, ok := hub.msg(p)
		assert.True(t, ok, "player %s should have been notified", p)
		assert.Equal(t, "matched", msg.Event)
		dataBytes, _ := json.Marshal(msg.Data)
		var payload map[string]interface{}
		_ = json.Unmarshal(dataBytes, &payload)
		assert.Equal(t, m.ID, payload["roomId"])
	}

	// the queue refills for a second table
	for i := 3; i < 5; i++ {
		_, q, err := svc.Join(context.Background(), players[i], JoinRequest{GameType: game, TableSize: size})
		assert.NoError(t, err)
		assert.True(t, q)
	}
	m2, q2, err := svc.Join(context.Background(), players[5], JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.False(t, q2)
	assert.NotNil(t, m2)
	assert.Equal(t, size, len(m2.Players))
}

func Test_Service_RejectsBadRequests(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 60, newMockHub(), func(g string) bool { return g == "quiz" })

	_, _, err := svc.Join(context.Background(), "p1", JoinRequest{GameType: "quiz", TableSize: 1})
	assert.Error(t, err)

	_, _, err = svc.Join(context.Background(), "p1", JoinRequest{GameType: "backgammon", TableSize: 2})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown game type")
}

func Test_Service_OnMatchCallback(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 60, newMockHub(), anyType)
	got := make(chan *Match, 1)
	svc.OnMatch = func(m *Match) { got <- m }

	_, _, err := svc.Join(context.Background(), "a", JoinRequest{GameType: "memory", TableSize: 2})
	assert.NoError(t, err)
	_, queued, err := svc.Join(context.Background(), "b", JoinRequest{GameType: "memory", TableSize: 2})
	assert.NoError(t, err)
	assert.False(t, queued)

	select {
	case m := <-got:
		assert.Equal(t, "memory", m.GameType)
		assert.ElementsMatch(t, []string{"a", "b"}, m.Players)
	case <-time.After(time.Second):
		t.Fatal("OnMatch never fired")
	}
}

func Test_RedisRepo_MatchFlow(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisRepo(rdb)
	hub := newMockHub()
	svc := NewService(repo, 60, hub, anyType)

	game := "wordle"
	size := 2
	p1, p2, p3, p4 := "u1", "u2", "u3", "u4"

	_, queued, err := svc.Join(context.Background(), p1, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.True(t, queued)

	m, queued, err := svc.Join(context.Background(), p2, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.False(t, queued)
	assert.NotNil(t, m)
	assert.Equal(t, size, len(m.Players))

	for _, p := range m.Players {
		msg, ok := hub.msg(p)
		assert.True(t, ok)
		assert.Equal(t, "matched", msg.Event)
	}

	// match record persisted
	assert.True(t, mr.Exists("lobby:match:"+m.ID))

	// a queued player who cancels does not take part in later tables
	_, queued, err = svc.Join(context.Background(), p3, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.True(t, queued)
	assert.NoError(t, svc.Cancel(context.Background(), p3))

	_, queued, err = svc.Join(context.Background(), p4, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.True(t, queued)

	m2, queued, err := svc.Join(context.Background(), p3, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, size, len(m2.Players))

	cnt, err := repo.Count(context.Background(), game, size)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), cnt)
}

func Test_RedisRepo_QueueLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisRepo(rdb)

	game := "chess"
	size := 2
	p1, p2 := "a1", "a2"
	key := queueKey(game, size)

	assert.NoError(t, repo.Enqueue(ctx, game, size, p1, 60))
	assert.True(t, mr.Exists(key), "queue should exist after first enqueue")

	assert.NoError(t, repo.Enqueue(ctx, game, size, p2, 60))
	count, err := repo.Count(ctx, game, size)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ids, err := repo.PopNRandom(ctx, game, size, size)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{p1, p2}, ids)
	assert.False(t, mr.Exists(key), "queue key should be gone after pop")

	p3 := "a3"
	assert.NoError(t, repo.Enqueue(ctx, game, size, p3, 60))
	assert.True(t, mr.Exists(key))

	assert.NoError(t, repo.Remove(ctx, p3))
	assert.False(t, mr.Exists(key), "empty queue should be deleted on cancel")
}

func Test_PlayerCannotRequeue_WhileMatched(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisRepo(rdb)
	svc := NewService(repo, 60, newMockHub(), anyType)

	ctx := context.Background()
	game := "codenames"
	size := 2
	p1, p2 := "x1", "x2"

	_, queued, err := svc.Join(ctx, p1, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.True(t, queued)

	m, queued, err := svc.Join(ctx, p2, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.False(t, queued)
	assert.NotNil(t, m)

	val, _ := mr.Get(fmt.Sprintf("lobby:playerMatch:%s", p1))
	assert.Equal(t, m.ID, val)

	_, _, err = svc.Join(ctx, p1, JoinRequest{GameType: game, TableSize: size})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already in match")

	// once the room finishes, Release lets the players queue again
	assert.NoError(t, svc.Release(ctx, m))
	_, queued, err = svc.Join(ctx, p1, JoinRequest{GameType: game, TableSize: size})
	assert.NoError(t, err)
	assert.True(t, queued)
}

func Test_RedisRepo_ConcurrentJoins(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisRepo(rdb)
	svc := NewService(repo, 60, newMockHub(), anyType)

	game := "quiz"
	size := 3
	players := []string{"c1", "c2", "c3", "c4", "c5", "c6"}

	done := make(chan struct{}, len(players))
	for _, p := range players {
		go func(id string) {
			_, _, _ = svc.Join(context.Background(), id, JoinRequest{GameType: game, TableSize: size})
			done <- struct{}{}
		}(p)
	}
	for range players {
		<-done
	}

	// six players at three per table leaves an empty queue
	cnt, err := repo.Count(context.Background(), game, size)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), cnt)
}
