package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит паузы в Redis, чтобы их разделяли все экземпляры сервиса.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore создаёт хранилище пауз поверх Redis.
func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb, prefix: "cooldown:"}
}

// Ping проверяет доступность Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Acquire реализует Store через SET NX PX.
func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (time.Duration, bool, error) {
	k := s.prefix + key

	ok, err := s.client.SetNX(ctx, k, 1, ttl).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return ttl, true, nil
	}

	remaining, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis pttl: %w", err)
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false, nil
}

// Remaining реализует Store.
func (s *RedisStore) Remaining(ctx context.Context, key string) (time.Duration, error) {
	remaining, err := s.client.PTTL(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pttl: %w", err)
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Reset реализует Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
