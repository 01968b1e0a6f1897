// Package ratelimit implements the fixed-window admission control applied
// to the upload path. Fixed window rather than token bucket on purpose: the
// guarded operation is an expensive multi-gigabyte upload, and a burst at a
// window boundary is an accepted imprecision.
package ratelimit

import (
	"sync"
	"time"
)

// sweepThreshold is the table size past which expired entries are swept
// opportunistically, bounding memory without a background task.
const sweepThreshold = 2000

type entry struct {
	windowStart time.Time
	count       int
}

// Limiter tracks one counting window per client id (best-effort IP).
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*entry
	now     func() time.Time
}

func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed. Exactly max calls succeed
// per window; further calls are denied without advancing the counter.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[clientID]
	if !ok || now.Sub(e.windowStart) > l.window {
		if !ok && len(l.entries) >= sweepThreshold {
			l.sweep(now)
		}
		l.entries[clientID] = &entry{windowStart: now, count: 1}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// sweep drops every entry whose window has already rolled over. Callers
// must hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	for id, e := range l.entries {
		if now.Sub(e.windowStart) > l.window {
			delete(l.entries, id)
		}
	}
}
