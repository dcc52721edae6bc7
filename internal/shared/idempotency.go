package shared

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore remembers processed request keys in redis.
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store. Keys expire after ttl.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// CheckAndInsert claims key for module, failing with ErrIdempotencyConflict
// when it was already claimed.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.client == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	ok, err := s.client.SetNX(ctx, redisKey(module, key), time.Now().UTC().Format(time.RFC3339Nano), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	return s.client.Del(ctx, redisKey(module, key)).Err()
}

func redisKey(module, key string) string {
	return "idempotency:" + module + ":" + key
}
