package kvstore

import (
	"context"
	"fmt"
	"sync"
)

// DefaultQuotaBytes matches the per-origin budget browsers give localStorage.
const DefaultQuotaBytes = 5 * 1024 * 1024

// MemBackend keeps values in process memory under a total byte quota
// (keys and values both count). A zero quota means unlimited.
type MemBackend struct {
	mu     sync.RWMutex
	m      map[string][]byte
	quota  int
	used   int
	closed bool
}

func NewMemBackend(quotaBytes int) *MemBackend {
	return &MemBackend{m: map[string][]byte{}, quota: quotaBytes}
}

func (b *MemBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, false, ErrClosed
	}
	v, ok := b.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (b *MemBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	used := b.used + len(key) + len(value)
	if old, ok := b.m[key]; ok {
		used -= len(key) + len(old)
	}
	if b.quota > 0 && used > b.quota {
		return fmt.Errorf("set %q: %d of %d bytes: %w", key, used, b.quota, ErrQuotaExceeded)
	}

	v := make([]byte, len(value))
	copy(v, value)
	b.m[key] = v
	b.used = used
	return nil
}

func (b *MemBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if old, ok := b.m[key]; ok {
		b.used -= len(key) + len(old)
		delete(b.m, key)
	}
	return nil
}

func (b *MemBackend) Ping(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	return nil
}

func (b *MemBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

// Used reports the bytes currently counted against the quota.
func (b *MemBackend) Used() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.used
}
