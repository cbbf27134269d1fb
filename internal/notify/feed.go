package notify

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultTTL = 3 * time.Second
	maxPending = 20
)

// Toast is a queued notification shown to one session until it expires.
type Toast struct {
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Feed keeps short-lived toasts per session scope.
type Feed struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	toasts map[string][]Toast
}

func NewFeed(ttl time.Duration) *Feed {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Feed{
		ttl:    ttl,
		now:    time.Now,
		toasts: make(map[string][]Toast),
	}
}

// For returns a Notifier that queues toasts for scope.
func (f *Feed) For(scope string) Notifier {
	return Func(func(_ context.Context, msg string, kind Kind) {
		f.push(scope, msg, kind)
	})
}

func (f *Feed) push(scope, msg string, kind Kind) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	ts := append(live(f.toasts[scope], now), Toast{
		Message:   msg,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(f.ttl),
	})
	if len(ts) > maxPending {
		ts = ts[len(ts)-maxPending:]
	}
	f.toasts[scope] = ts
}

// Pending returns the unexpired toasts of scope, oldest first.
func (f *Feed) Pending(scope string) []Toast {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	ts := live(f.toasts[scope], now)
	if len(ts) == 0 {
		delete(f.toasts, scope)
		return []Toast{}
	}
	f.toasts[scope] = ts

	out := make([]Toast, len(ts))
	copy(out, ts)
	return out
}

// Sweep drops every expired toast; run it periodically to bound memory.
func (f *Feed) Sweep() {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	for scope, ts := range f.toasts {
		if ts = live(ts, now); len(ts) == 0 {
			delete(f.toasts, scope)
		} else {
			f.toasts[scope] = ts
		}
	}
}

// Run sweeps every interval until ctx is done.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.Sweep()
		}
	}
}

func live(ts []Toast, now time.Time) []Toast {
	n := 0
	for _, t := range ts {
		if now.Before(t.ExpiresAt) {
			ts[n] = t
			n++
		}
	}
	return ts[:n]
}
