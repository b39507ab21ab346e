package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// SlidingWindowLimiter is an in-process, best-effort guard for outbound model
// calls, keyed by credential. It tracks request timestamps per key and prunes
// them on each call. State is process-local and advisory only; upstream
// throttling remains the source of truth.
type SlidingWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewSlidingWindowLimiter creates a limiter allowing limit requests per key
// within the trailing window. Non-positive arguments fall back to
// 50 requests per minute.
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	if limit <= 0 {
		limit = 50
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindowLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// Allow records a request for the key and reports whether it is within quota.
func (l *SlidingWindowLimiter) Allow(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	now := l.now()
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.requests[key] = kept
		return false
	}
	l.requests[key] = append(kept, now)
	return true
}
