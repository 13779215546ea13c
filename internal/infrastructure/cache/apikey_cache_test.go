package cache

import (
	"context"
	"testing"
	"time"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/domain/apikey"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestDigestKey(t *testing.T) {
	a := digestKey("abcdefgh.secret")
	b := digestKey("abcdefgh.secret")
	c := digestKey("abcdefgh.other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("apikey:")+64)
	assert.NotContains(t, a, "secret")
}

func TestIndexKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "apikey:id:6ba7b810-9dad-11d1-80b4-00c04fd430c8", indexKey(id))
}

func TestAPIKeyCache_UnavailableRedisIsAMiss(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	c := NewAPIKeyCache(client, time.Minute)
	ctx := context.Background()

	key := &apikey.APIKey{ID: uuid.New(), KeyPrefix: "abcdefgh", AccountID: uuid.New(), IsActive: true}

	assert.NotPanics(t, func() {
		c.Set(ctx, "abcdefgh.secret", key)
		c.Evict(ctx, key.ID)
	})

	got, ok := c.Get(ctx, "abcdefgh.secret")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestNewRedisClient_DisabledWithoutAddr(t *testing.T) {
	client, err := NewRedisClient(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
