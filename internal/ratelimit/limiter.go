// Package ratelimit provides a process-local sliding-window admission guard.
// It is not a durable quota: state lives in memory and resets on restart.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits up to maxRequests calls within a trailing window. Timestamps
// are pruned lazily on every call; an entry whose age equals the window length
// exactly is treated as expired. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// New creates a Limiter admitting maxRequests calls per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		requests:    make([]time.Time, 0, maxRequests),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// CheckLimit reports whether the call is admitted. An admitted call records
// its timestamp; a denied call records nothing.
func (l *Limiter) CheckLimit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.requests) >= l.maxRequests {
		return false
	}

	l.requests = append(l.requests, now)
	return true
}

// TimeUntilReset returns how long until the oldest recorded timestamp exits
// the window, or 0 if nothing is recorded.
func (l *Limiter) TimeUntilReset() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())

	if len(l.requests) == 0 {
		return 0
	}

	remaining := l.window - l.now().Sub(l.requests[0])
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingRequests returns how many more calls would currently be admitted,
// floored at 0.
func (l *Limiter) RemainingRequests() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())

	remaining := l.maxRequests - len(l.requests)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// prune discards timestamps that have aged out of the window. Entries are
// appended in order, so the retained suffix starts at the first in-window
// entry. Callers must hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := 0
	for cutoff < len(l.requests) && now.Sub(l.requests[cutoff]) >= l.window {
		cutoff++
	}
	if cutoff > 0 {
		l.requests = append(l.requests[:0], l.requests[cutoff:]...)
	}
}
