package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a keyed token bucket. Every key starts with a full burst.
type Limiter struct {
	mu     sync.Mutex
	m      map[string]*rate.Limiter
	burst  int
	refill rate.Limit // tokens per second
	now    func() time.Time
}

func New(burst int, refillPerSec float64) *Limiter {
	return &Limiter{
		m:      make(map[string]*rate.Limiter),
		burst:  burst,
		refill: rate.Limit(refillPerSec),
		now:    time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(l.refill, l.burst)
		l.m[key] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(l.now(), 1)
}
