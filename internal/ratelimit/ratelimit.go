// Package ratelimit provides the per-client throttle for password-reset
// requests. State is process-lifetime and in-memory by design: losing it on
// restart is acceptable for this use.
package ratelimit

import (
	"sync"
	"time"
)

// sweepThreshold is the map size past which Allow evicts stale entries
// before recording a new one.
const sweepThreshold = 1024

// Limiter allows one request per key per window.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time // key -> last allowed request
	now    func() time.Time     // injectable for tests
}

// New returns a Limiter with the given window.
func New(window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether a request from key may proceed, recording it if so.
// A denied request does not extend the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.seen[key]; ok && now.Sub(last) < l.window {
		return false
	}
	if len(l.seen) >= sweepThreshold {
		l.sweep(now)
	}
	l.seen[key] = now
	return true
}

// sweep drops entries whose window has already elapsed. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for k, last := range l.seen {
		if now.Sub(last) >= l.window {
			delete(l.seen, k)
		}
	}
}
