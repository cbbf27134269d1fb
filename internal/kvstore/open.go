package kvstore

import (
	"context"
	"fmt"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	// QuotaBytes bounds the whole memory store, and each single value elsewhere.
	QuotaBytes int

	RedisURL    string
	PostgresDSN string
	SQLitePath  string
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemBackend(cfg.QuotaBytes), nil
	case DriverRedis:
		return NewRedisBackend(ctx, RedisConfig{URL: cfg.RedisURL, MaxValueBytes: cfg.QuotaBytes})
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN, cfg.QuotaBytes)
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath, cfg.QuotaBytes)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
