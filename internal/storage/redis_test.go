package storage

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func TestInitRedisConnects(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client, err := InitRedis(mr.Addr(), "", 0)
	assert.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, client, Rdb)
}

func TestInitRedisUnreachableLeavesGlobalUnset(t *testing.T) {
	Rdb = nil
	client, err := InitRedis("127.0.0.1:1", "", 0)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Nil(t, Rdb)
}
