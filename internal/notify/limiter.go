package notify

import (
	"sync"
	"time"
)

// WindowLimiter is a sliding-window counter keyed by recipient. It is
// injected rather than process-global so tests can reset it and deployments
// with several instances can swap in the Redis variant.
type WindowLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	hits   map[string][]time.Time

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func NewWindowLimiter(window time.Duration, limit int) *WindowLimiter {
	return &WindowLimiter{
		window: window,
		limit:  limit,
		hits:   make(map[string][]time.Time),
		Now:    time.Now,
	}
}

func (l *WindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Now()
	cutoff := now.Add(-l.window)
	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// Reset drops all recorded hits.
func (l *WindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[string][]time.Time)
}
