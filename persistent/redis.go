package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vitalkeep/vitalkeep"
)

// RedisStorage keeps values as plain redis strings under Prefix+key.
type RedisStorage struct {
	Client *redis.Client
	Prefix string
}

var _ vitalkeep.Storage = (*RedisStorage)(nil)

func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Client.Get(ctx, s.Prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", vitalkeep.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value string) error {
	if err := s.Client.Set(ctx, s.Prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
