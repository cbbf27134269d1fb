// Package notify carries user-facing outcome messages (toasts) out of the
// domain managers. Delivery is fire-and-forget: a missing or failing
// notifier never changes the outcome of the operation that raised it.
package notify

import (
	"context"

	"go.uber.org/zap"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

type Notifier interface {
	Notify(ctx context.Context, msg string, kind Kind)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, msg string, kind Kind)

func (f Func) Notify(ctx context.Context, msg string, kind Kind) { f(ctx, msg, kind) }

type nop struct{}

func (nop) Notify(context.Context, string, Kind) {}

// Nop discards every notification.
var Nop Notifier = nop{}

// OrNop returns n, or Nop when n is nil.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return Nop
	}
	return n
}

// Log writes notifications to a zap logger, errors at error level.
type Log struct {
	L *zap.Logger
}

func (l Log) Notify(_ context.Context, msg string, kind Kind) {
	if l.L == nil {
		return
	}
	switch kind {
	case Error:
		l.L.Error("notify", zap.String("kind", string(kind)), zap.String("message", msg))
	case Warning:
		l.L.Warn("notify", zap.String("kind", string(kind)), zap.String("message", msg))
	default:
		l.L.Debug("notify", zap.String("kind", string(kind)), zap.String("message", msg))
	}
}

// Multi fans a notification out to every non-nil notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg string, kind Kind) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, msg, kind)
		}
	}
}
