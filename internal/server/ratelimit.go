package server

import (
	"sync"
	"time"
)

const (
	chatRateWindow    = time.Minute
	chatRateMaxOwners = 10000 // cap tracked owners to bound memory
)

// chatRateLimiter enforces a sliding-window request cap per owner on the
// chat endpoints.
type chatRateLimiter struct {
	mu       sync.Mutex
	max      int
	requests map[string][]time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func newChatRateLimiter(maxPerMinute int) *chatRateLimiter {
	rl := &chatRateLimiter{
		max:      maxPerMinute,
		requests: make(map[string][]time.Time),
		stop:     make(chan struct{}),
	}
	go rl.periodicCleanup()
	return rl
}

// close stops the cleanup goroutine. Safe to call more than once.
func (l *chatRateLimiter) close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// periodicCleanup removes stale entries every minute until close is called.
func (l *chatRateLimiter) periodicCleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}

		l.mu.Lock()
		cutoff := time.Now().Add(-chatRateWindow)
		for owner, times := range l.requests {
			filtered := times[:0]
			for _, t := range times {
				if t.After(cutoff) {
					filtered = append(filtered, t)
				}
			}
			if len(filtered) == 0 {
				delete(l.requests, owner)
			} else {
				l.requests[owner] = filtered
			}
		}
		l.mu.Unlock()
	}
}

// allow records a request and reports whether the owner is within the limit.
func (l *chatRateLimiter) allow(owner string) bool {
	if l.max <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-chatRateWindow)
	recent := l.requests[owner]
	filtered := recent[:0]
	for _, t := range recent {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) >= l.max {
		l.requests[owner] = filtered
		return false
	}

	if _, exists := l.requests[owner]; !exists && len(l.requests) >= chatRateMaxOwners {
		for k := range l.requests {
			delete(l.requests, k)
			break
		}
	}

	l.requests[owner] = append(filtered, time.Now())
	return true
}
