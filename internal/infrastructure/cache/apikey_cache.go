package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"device-fleet-manager/internal/domain/apikey"
	"device-fleet-manager/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const apiKeyNamespace = "apikey"

// APIKeyCache stores verified keys under apikey:<sha256 of plaintext>. A set
// at apikey:id:<key id> indexes the digests so deactivation can evict them.
// Redis errors are logged and treated as misses.
type APIKeyCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewAPIKeyCache(client redis.UniversalClient, ttl time.Duration) *APIKeyCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &APIKeyCache{client: client, ttl: ttl}
}

type cachedKey struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	KeyPrefix string    `json:"key_prefix"`
	AccountID uuid.UUID `json:"account_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func digestKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return apiKeyNamespace + ":" + hex.EncodeToString(sum[:])
}

func indexKey(keyID uuid.UUID) string {
	return apiKeyNamespace + ":id:" + keyID.String()
}

func (c *APIKeyCache) Get(ctx context.Context, plaintext string) (*apikey.APIKey, bool) {
	raw, err := c.client.Get(ctx, digestKey(plaintext)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warn("API key cache read failed", zap.Error(err))
		return nil, false
	}

	var ck cachedKey
	if err := json.Unmarshal(raw, &ck); err != nil {
		return nil, false
	}

	return &apikey.APIKey{
		ID:        ck.ID,
		Name:      ck.Name,
		KeyPrefix: ck.KeyPrefix,
		AccountID: ck.AccountID,
		IsActive:  ck.IsActive,
		CreatedAt: ck.CreatedAt,
	}, true
}

func (c *APIKeyCache) Set(ctx context.Context, plaintext string, key *apikey.APIKey) {
	raw, err := json.Marshal(cachedKey{
		ID:        key.ID,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		AccountID: key.AccountID,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
	})
	if err != nil {
		return
	}

	digest := digestKey(plaintext)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, digest, raw, c.ttl)
	pipe.SAdd(ctx, indexKey(key.ID), digest)
	pipe.Expire(ctx, indexKey(key.ID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("API key cache write failed", zap.Error(err))
	}
}

func (c *APIKeyCache) Evict(ctx context.Context, keyID uuid.UUID) {
	idx := indexKey(keyID)
	digests, err := c.client.SMembers(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn("API key cache eviction failed", zap.Error(err))
		return
	}

	keys := append(digests, idx)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("API key cache eviction failed", zap.Error(err))
	}
}
