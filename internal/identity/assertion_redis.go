package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const assertionKeyPrefix = "assertion:"

// RedisAssertionStore backs assertions with Redis so multiple instances
// share one token space. GETDEL makes Consume atomic; the key TTL
// enforces expiry server-side.
type RedisAssertionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAssertionStore(client *redis.Client, ttl time.Duration) *RedisAssertionStore {
	return &RedisAssertionStore{client: client, ttl: ttl}
}

func (s *RedisAssertionStore) Issue(ctx context.Context, voterID string) (string, error) {
	token := uuid.New().String()
	if err := s.client.Set(ctx, assertionKeyPrefix+token, voterID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("issuing assertion: %w", err)
	}
	return token, nil
}

func (s *RedisAssertionStore) Consume(ctx context.Context, token string) (string, error) {
	voterID, err := s.client.GetDel(ctx, assertionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrAssertionInvalid
		}
		return "", fmt.Errorf("consuming assertion: %w", err)
	}
	return voterID, nil
}
