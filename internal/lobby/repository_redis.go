package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisRepo keeps the queues in Redis so several gateway instances can
// share one matchmaking pool.
//
// Key layout:
//
//	set: lobby:queue:{gameType}:{tableSize} -> Set(playerID, ...)
//	kv : lobby:player:{playerID}            -> "gameType:tableSize", with TTL
//	kv : lobby:match:{matchID}              -> match JSON
//	kv : lobby:playerMatch:{playerID}       -> matchID
type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb}
}

func queueKey(gameType string, tableSize int) string {
	return fmt.Sprintf("lobby:queue:%s:%d", gameType, tableSize)
}

func playerKey(id string) string {
	return fmt.Sprintf("lobby:player:%s", id)
}

func (r *redisRepo) Enqueue(ctx context.Context, gameType string, tableSize int, playerID string, ttlSeconds int) error {
	p := r.rdb.Pipeline()
	p.SAdd(ctx, queueKey(gameType, tableSize), playerID)
	p.Set(ctx, playerKey(playerID), fmt.Sprintf("%s:%d", gameType, tableSize), time.Duration(ttlSeconds)*time.Second)
	_, err := p.Exec(ctx)
	return err
}

func (r *redisRepo) PopNRandom(ctx context.Context, gameType string, tableSize int, n int) ([]string, error) {
	// SPOP with a count removes n random members atomically
	ids, err := r.rdb.SPopN(ctx, queueKey(gameType, tableSize), int64(n)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		p := r.rdb.Pipeline()
		for _, id := range ids {
			p.Del(ctx, playerKey(id))
		}
		_, _ = p.Exec(ctx)
	}
	return ids, nil
}

func (r *redisRepo) Remove(ctx context.Context, playerID string) error {
	kv, err := r.rdb.Get(ctx, playerKey(playerID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	parts := strings.SplitN(kv, ":", 2)
	if len(parts) != 2 {
		return r.rdb.Del(ctx, playerKey(playerID)).Err()
	}
	size, err := strconv.Atoi(parts[1])
	if err != nil {
		return r.rdb.Del(ctx, playerKey(playerID)).Err()
	}

	qk := queueKey(parts[0], size)
	pk := playerKey(playerID)

	// drop the player key, remove from the set, delete the set when empty
	script := `
        redis.call("DEL", KEYS[1])
        redis.call("SREM", KEYS[2], ARGV[1])
        if redis.call("SCARD", KEYS[2]) == 0 then
            redis.call("DEL", KEYS[2])
        end
        return 1
    `
	return r.rdb.Eval(ctx, script, []string{pk, qk}, playerID).Err()
}

func (r *redisRepo) Count(ctx context.Context, gameType string, tableSize int) (int64, error) {
	return r.rdb.SCard(ctx, queueKey(gameType, tableSize)).Result()
}

// SaveMatch records the formed table and a reverse index per player, so a
// player cannot queue again while their table is live.
func (r *redisRepo) SaveMatch(ctx context.Context, m *Match, ttlSeconds int) error {
	data, _ := json.Marshal(m)
	ttl := time.Duration(ttlSeconds) * time.Second
	p := r.rdb.Pipeline()
	p.Set(ctx, fmt.Sprintf("lobby:match:%s", m.ID), data, ttl)
	for _, id := range m.Players {
		p.Set(ctx, fmt.Sprintf("lobby:playerMatch:%s", id), m.ID, ttl)
	}
	_, err := p.Exec(ctx)
	return err
}

// ClearMatch drops the match record and reverse index once the game room
// has finished.
func (r *redisRepo) ClearMatch(ctx context.Context, m *Match) error {
	p := r.rdb.Pipeline()
	p.Del(ctx, fmt.Sprintf("lobby:match:%s", m.ID))
	for _, id := range m.Players {
		p.Del(ctx, fmt.Sprintf("lobby:playerMatch:%s", id))
	}
	_, err := p.Exec(ctx)
	return err
}

func (r *redisRepo) GetPlayerMatch(ctx context.Context, playerID string) (string, error) {
	val, err := r.rdb.Get(ctx, fmt.Sprintf("lobby:playerMatch:%s", playerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
