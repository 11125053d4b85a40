package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

var Rdb *redis.Client

// InitRedis connects the shared client backing the lobby queues. The
// global is assigned only once the ping succeeds; the client is also
// returned so callers can wire it without the package global.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	Rdb = client
	return client, nil
}
