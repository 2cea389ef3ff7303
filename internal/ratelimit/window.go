// Package ratelimit caps how many error events a pipeline accepts per fixed
// window. One window is shared by every caller of a pipeline instance; an
// error storm is exactly the situation it exists for.
package ratelimit

import (
	"sync"
	"time"

	"faultline/internal/constants"
)

type Limiter struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
	length      time.Duration
	limit       int
	now         func() time.Time
}

func New(length time.Duration, limit int) *Limiter {
	if length <= 0 {
		length = constants.RateLimitWindow
	}
	if limit <= 0 {
		limit = constants.RateLimitCap
	}
	return &Limiter{
		length: length,
		limit:  limit,
		now:    time.Now,
	}
}

// Allow counts the call and reports whether it fits the current window.
// The window resets wholesale once its length has strictly elapsed; there
// is no sliding credit. The count advances even for rejected calls.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) > l.length {
		l.windowStart = now
		l.count = 0
	}

	l.count++
	return l.count <= l.limit
}
