package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrInvalidState is returned when a callback carries a state nonce that was
// never issued, already used, or expired.
var ErrInvalidState = errors.New("invalid oauth state")

// StateStore issues one-time nonces for the authorization redirect.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) error
}

type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStateStore keeps nonces as keys with a TTL; consuming deletes the key,
// so a nonce works once.
type RedisStateStore struct {
	client redisClient
	ttl    time.Duration
}

const stateKeyPrefix = "ikebana:oauth:state:"

func NewRedisStateStore(client redisClient, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, stateKeyPrefix+state, 1, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	n, err := s.client.Del(ctx, stateKeyPrefix+state).Result()
	if err != nil {
		return fmt.Errorf("consume state: %w", err)
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}
