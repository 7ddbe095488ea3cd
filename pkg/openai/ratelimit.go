package openai

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between call issuances. The
// read-modify-write of the last reservation is serialized under a mutex so
// two concurrent callers can never compute the same wait window; the sleep
// itself happens outside the lock.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewRateLimiter spaces calls at 60/requestsPerMinute seconds apart.
// Non-positive rates disable limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{interval: time.Minute / time.Duration(requestsPerMinute)}
}

// Wait blocks until the caller's reserved slot arrives or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.interval <= 0 {
		return ctx.Err()
	}

	r.mu.Lock()
	now := time.Now()
	at := r.next
	if at.Before(now) {
		at = now
	}
	r.next = at.Add(r.interval)
	r.mu.Unlock()

	d := time.Until(at)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
