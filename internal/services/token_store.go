package services

import (
	"context"
	"time"

	"catapi/pkg/cache"
)

const revokedKeyPrefix = "revoked_token:"

// TokenStore remembers revoked token IDs until the tokens expire.
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) bool
}

// RedisTokenStore keeps revoked token IDs in redis with a TTL.
type RedisTokenStore struct {
	cache *cache.Client
}

// NewRedisTokenStore creates a token store on top of c. A nil c yields a
// store that never reports a token as revoked.
func NewRedisTokenStore(c *cache.Client) *RedisTokenStore {
	return &RedisTokenStore{cache: c}
}

// Revoke marks tokenID revoked for ttl.
func (s *RedisTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked reports whether tokenID was revoked.
func (s *RedisTokenStore) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	return s.cache.Exists(ctx, revokedKeyPrefix+tokenID)
}
