package notify

import (
	"context"
	"testing"
	"time"
)

func TestFeed_AutoDismiss(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := NewFeed(3 * time.Second)
	f.now = func() time.Time { return now }

	ctx := context.Background()
	f.For("s1").Notify(ctx, "Shoe added to cart", Success)
	f.For("s2").Notify(ctx, "Storage is full", Error)

	got := f.Pending("s1")
	if len(got) != 1 || got[0].Message != "Shoe added to cart" || got[0].Kind != Success {
		t.Fatalf("pending=%+v", got)
	}

	now = now.Add(2 * time.Second)
	f.For("s1").Notify(ctx, "second", Info)
	if n := len(f.Pending("s1")); n != 2 {
		t.Fatalf("pending=%d want=2", n)
	}

	now = now.Add(1500 * time.Millisecond)
	got = f.Pending("s1")
	if len(got) != 1 || got[0].Message != "second" {
		t.Fatalf("pending after first expiry=%+v", got)
	}

	now = now.Add(10 * time.Second)
	f.Sweep()
	if len(f.toasts) != 0 {
		t.Fatalf("sweep left %d scopes", len(f.toasts))
	}
}

func TestFeed_BoundedQueue(t *testing.T) {
	f := NewFeed(time.Minute)
	n := f.For("s")
	for i := 0; i < maxPending+5; i++ {
		n.Notify(context.Background(), "x", Info)
	}
	if got := len(f.Pending("s")); got != maxPending {
		t.Fatalf("pending=%d want=%d", got, maxPending)
	}
}

func TestOrNop(t *testing.T) {
	OrNop(nil).Notify(context.Background(), "ignored", Error)

	var calls int
	OrNop(Func(func(context.Context, string, Kind) { calls++ })).Notify(context.Background(), "x", Info)
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}
