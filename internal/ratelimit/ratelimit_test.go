package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestWindow(window time.Duration, cap int) (*Window, *time.Time) {
	w := NewWindow(window, cap)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	return w, &now
}

func TestWindowCap(t *testing.T) {
	w, _ := newTestWindow(time.Hour, 10)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		if !w.Allow(ctx, "1.2.3.4") {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if w.Allow(ctx, "1.2.3.4") {
		t.Fatal("11th call within the window must be denied")
	}
	if w.Allow(ctx, "1.2.3.4") {
		t.Fatal("subsequent calls must stay denied")
	}
}

func TestWindowIdentifiersIndependent(t *testing.T) {
	w, _ := newTestWindow(time.Hour, 2)
	ctx := context.Background()

	w.Allow(ctx, "a")
	w.Allow(ctx, "a")
	if w.Allow(ctx, "a") {
		t.Fatal("a should be capped")
	}
	if !w.Allow(ctx, "b") {
		t.Fatal("b must not be affected by a's window")
	}
}

func TestWindowResetAfterExpiry(t *testing.T) {
	w, now := newTestWindow(time.Hour, 2)
	ctx := context.Background()

	w.Allow(ctx, "a")
	w.Allow(ctx, "a")
	if w.Allow(ctx, "a") {
		t.Fatal("should be capped")
	}

	*now = now.Add(time.Hour)
	if !w.Allow(ctx, "a") {
		t.Fatal("first call in a new window must be allowed")
	}
	if !w.Allow(ctx, "a") {
		t.Fatal("count must have been reset")
	}
}

func TestWindowLazyGC(t *testing.T) {
	w, now := newTestWindow(time.Minute, 5)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		w.Allow(ctx, id)
	}
	if len(w.entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(w.entries))
	}

	*now = now.Add(2 * time.Minute)
	w.Allow(ctx, "d")
	if len(w.entries) != 1 {
		t.Fatalf("expired entries should be purged, got %d", len(w.entries))
	}
}

func TestWindowRemaining(t *testing.T) {
	w, now := newTestWindow(time.Hour, 3)
	ctx := context.Background()

	if got := w.Remaining("a"); got != 3 {
		t.Fatalf("fresh identifier: got %d", got)
	}
	w.Allow(ctx, "a")
	w.Allow(ctx, "a")
	if got := w.Remaining("a"); got != 1 {
		t.Fatalf("after 2 calls: got %d", got)
	}
	*now = now.Add(time.Hour)
	if got := w.Remaining("a"); got != 3 {
		t.Fatalf("after expiry: got %d", got)
	}
}

func TestWindowConcurrentSameIdentifier(t *testing.T) {
	w := NewWindow(time.Hour, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- w.Allow(ctx, "hot")
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Fatalf("expected exactly cap allowed under contention, got %d", count)
	}
	if _, ok := w.entries["hot"]; !ok {
		t.Fatal("entry must survive the race")
	}
}
