package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExceeded is returned (wrapped) by a backend that has no room left for a write.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrClosed        = errors.New("store closed")
)

// Backend is the raw persistence medium behind a Store. Every implementation
// is context-aware, so in-process and networked media share one calling
// convention.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

// checkValueSize enforces a per-value ceiling; max <= 0 disables it.
func checkValueSize(key string, value []byte, max int) error {
	if max > 0 && len(value) > max {
		return fmt.Errorf("value for %q is %d bytes, limit %d: %w", key, len(value), max, ErrQuotaExceeded)
	}
	return nil
}
