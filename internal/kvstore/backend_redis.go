package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type cmdable interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisConfig struct {
	URL           string
	MaxValueBytes int
	// TTL expires idle keys; zero keeps them forever.
	TTL time.Duration
}

// RedisBackend stores values as plain Redis strings.
type RedisBackend struct {
	rdb      cmdable
	raw      *redis.Client
	maxValue int
	ttl      time.Duration
}

// NewRedisBackend connects and verifies the server with a ping.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	raw := redis.NewClient(opts)
	if err := withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return raw.Ping(ctx).Err()
	}); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisBackend{rdb: raw, raw: raw, maxValue: cfg.MaxValueBytes, ttl: cfg.TTL}, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := checkValueSize(key, value, b.maxValue); err != nil {
		return err
	}
	if err := b.rdb.Set(ctx, key, value, b.ttl).Err(); err != nil {
		if isRedisOOM(err) {
			return fmt.Errorf("redis set %q: %v: %w", key, err, ErrQuotaExceeded)
		}
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return b.rdb.Ping(ctx).Err()
	})
}

func (b *RedisBackend) Close() error {
	if b.raw == nil {
		return nil
	}
	return b.raw.Close()
}

// isRedisOOM matches the reply Redis sends when maxmemory is reached.
func isRedisOOM(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "OOM ")
}
