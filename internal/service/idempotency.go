package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemKeyPrefix = "payment:idem:"

// IdempotencyStore claims client-supplied idempotency keys so a retried
// payment submission cannot double-apply. Claim returns false when the key
// was already used within the TTL window. Release frees a claimed key when
// the attempt failed before anything was recorded, so the client's retry
// with the same key goes through.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore claims keys with SETNX under a fixed TTL.
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) IdempotencyStore {
	return &redisIdempotencyStore{client: client, ttl: ttl}
}

func (s *redisIdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, idemKeyPrefix+key, 1, s.ttl).Result()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idemKeyPrefix+key).Err()
}
