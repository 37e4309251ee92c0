// Package ratelimit implements an in-memory token-bucket rate limiter
// keyed by API key id. Each key refills at its own configured rate; a
// shared burst allowance lets short spikes through without raising the
// sustained limit.
package ratelimit

import (
	"sync"
	"time"
)

// entry tracks the token-bucket state for a single key.
type entry struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter implements a token-bucket rate limiter. Tokens refill at a rate
// of (limit / window) per second; the bucket holds up to limit+burst
// tokens so idle keys can absorb a spike.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	burst   int
	stop    chan struct{}
}

// New creates a rate limiter with the given refill window and burst
// allowance. Stop must be called to release the cleanup goroutine.
func New(window time.Duration, burst int) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if burst < 0 {
		burst = 0
	}
	l := &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		burst:   burst,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow checks whether the given key has remaining capacity.
// It consumes one token on success and returns true.
// Returns false when the rate limit has been exceeded.
func (l *Limiter) Allow(key string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := float64(limit + l.burst)
	now := time.Now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{
			tokens:    capacity - 1,
			lastCheck: now,
		}
		return true
	}

	elapsed := now.Sub(e.lastCheck)
	e.lastCheck = now

	// Refill proportionally to elapsed time, capped at the burst ceiling.
	rate := float64(limit) / l.window.Seconds()
	e.tokens += elapsed.Seconds() * rate
	if e.tokens > capacity {
		e.tokens = capacity
	}

	if e.tokens < 1 {
		return false
	}

	e.tokens--
	return true
}

// Reset clears the rate-limit state for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Stop terminates the background cleanup goroutine.
func (l *Limiter) Stop() {
	close(l.stop)
}

// cleanup periodically removes stale entries to prevent memory leaks.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			cutoff := time.Now().Add(-2 * l.window)
			for key, e := range l.entries {
				if e.lastCheck.Before(cutoff) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
