// Package kvstore persists JSON documents under string keys and contains
// every storage failure at its boundary: reads fall back, writes report a
// boolean and raise a user-facing notification.
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"NetShop/internal/notify"
)

const (
	MsgStorageFull = "Storage is full. Please clear some data."
	MsgSaveFailed  = "Could not save your changes. Please try again."
)

type Options struct {
	Prefix   string
	Notifier notify.Notifier
	Log      *zap.Logger
	Metrics  *Metrics
}

// Store is a key-prefixed view over a Backend. It holds no cached state, so
// copies made by Scope and WithNotifier are cheap and share the backend.
type Store struct {
	backend  Backend
	prefix   string
	notifier notify.Notifier
	log      *zap.Logger
	metrics  *Metrics
}

func New(b Backend, o Options) *Store {
	s := &Store{
		backend:  b,
		notifier: notify.OrNop(o.Notifier),
		log:      o.Log,
		metrics:  o.Metrics,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if o.Prefix != "" {
		s.prefix = o.Prefix + ":"
	}
	return s
}

// Scope returns a child store whose keys live under name.
func (s *Store) Scope(name string) *Store {
	c := *s
	c.prefix = s.prefix + name + ":"
	return &c
}

// WithNotifier returns a copy reporting write failures to n.
func (s *Store) WithNotifier(n notify.Notifier) *Store {
	c := *s
	c.notifier = notify.OrNop(n)
	return &c
}

func (s *Store) Notifier() notify.Notifier { return s.notifier }

func (s *Store) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

func (s *Store) key(k string) string { return s.prefix + k }

// Read decodes the value stored under key. A missing key, a backend error or
// an undecodable value all yield fallback.
func Read[T any](ctx context.Context, s *Store, key string, fallback T) T {
	raw, ok := s.raw(ctx, key)
	if !ok {
		return fallback
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn("stored value is corrupt, using fallback", zap.String("key", s.key(key)), zap.Error(err))
		s.metrics.read(resultCorrupt)
		return fallback
	}
	s.metrics.read(resultHit)
	return v
}

func (s *Store) raw(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := s.backend.Get(ctx, s.key(key))
	if err != nil {
		s.log.Warn("store read failed", zap.String("key", s.key(key)), zap.Error(err))
		s.metrics.read(resultError)
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		s.metrics.read(resultMiss)
		return nil, false
	}
	return raw, true
}

// Write encodes value as JSON and stores it under key, replacing whatever was there.
func (s *Store) Write(ctx context.Context, key string, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		return s.fail(ctx, key, err)
	}
	if err := s.backend.Set(ctx, s.key(key), raw); err != nil {
		return s.fail(ctx, key, err)
	}
	s.metrics.write(resultOK)
	return true
}

// Remove deletes key. Removing an absent key succeeds.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := s.backend.Delete(ctx, s.key(key)); err != nil {
		return s.fail(ctx, key, err)
	}
	s.metrics.write(resultOK)
	return true
}

func (s *Store) fail(ctx context.Context, key string, err error) bool {
	if errors.Is(err, ErrQuotaExceeded) {
		s.log.Error("store is full", zap.String("key", s.key(key)), zap.Error(err))
		s.metrics.write(resultQuota)
		s.notifier.Notify(ctx, MsgStorageFull, notify.Error)
		return false
	}

	s.log.Error("store write failed", zap.String("key", s.key(key)), zap.Error(err))
	s.metrics.write(resultError)
	s.notifier.Notify(ctx, MsgSaveFailed, notify.Error)
	return false
}
