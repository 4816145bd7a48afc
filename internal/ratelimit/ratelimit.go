// Package ratelimit provides fixed-window request limiting keyed by caller
// identity.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter reports whether a caller identified by id may proceed. A false
// return maps to HTTP 429 at the handler layer; the window boundary is the
// implicit retry point.
type Limiter interface {
	Allow(ctx context.Context, id string) bool
}

type entry struct {
	count       int
	windowStart time.Time
}

// Window is an in-process fixed-window limiter. Counting is approximately
// correct under concurrent access; entries whose window has elapsed are
// purged lazily on the next call.
type Window struct {
	mu      sync.Mutex
	window  time.Duration
	cap     int
	entries map[string]*entry
	now     func() time.Time
}

// NewWindow returns a limiter allowing cap calls per id per window.
func NewWindow(window time.Duration, cap int) *Window {
	return &Window{
		window:  window,
		cap:     cap,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (w *Window) Allow(_ context.Context, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.gc(now)

	e, ok := w.entries[id]
	if !ok || now.Sub(e.windowStart) >= w.window {
		w.entries[id] = &entry{count: 1, windowStart: now}
		return true
	}

	// The call that reaches the cap is itself denied.
	if e.count >= w.cap {
		return false
	}
	e.count++
	return true
}

// Remaining reports how many calls id has left in its current window.
func (w *Window) Remaining(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[id]
	if !ok || w.now().Sub(e.windowStart) >= w.window {
		return w.cap
	}
	if e.count >= w.cap {
		return 0
	}
	return w.cap - e.count
}

// gc drops entries whose window has fully elapsed. Caller holds the lock.
func (w *Window) gc(now time.Time) {
	for id, e := range w.entries {
		if now.Sub(e.windowStart) >= w.window {
			delete(w.entries, id)
		}
	}
}
