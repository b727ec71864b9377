package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safesignal/sosclient/pkg/cache"
)

// keyValue is the subset of cache.RedisCache the store needs.
type keyValue interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore keeps the token in redis so it survives a shell restart.
type RedisStore struct {
	kv  keyValue
	key string
	ttl time.Duration
}

func NewRedisStore(kv keyValue, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, key: key, ttl: ttl}
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	var token string
	err := s.kv.Get(ctx, s.key, &token)
	if errors.Is(err, cache.ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	if err := s.kv.Set(ctx, s.key, token, s.ttl); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
