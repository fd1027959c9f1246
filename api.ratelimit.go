package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client ip. Idle buckets are
// pruned while serving requests, at most once per idle timeout.
type RateLimiter struct {
	mu       sync.Mutex
	clock    Clocker
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	pruned   time.Time
}

func NewRateLimiter(rps float64, burst int, clock Clocker) *RateLimiter {
	return &RateLimiter{
		clock:    clock,
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		pruned:   clock.Now(),
	}
}

// Allow reports whether the client identified by key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	if now.Sub(rl.pruned) > limiterIdleTimeout {
		for k, cl := range rl.limiters {
			if now.Sub(cl.lastSeen) > limiterIdleTimeout {
				delete(rl.limiters, k)
			}
		}
		rl.pruned = now
	}

	cl, exists := rl.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Size returns the number of tracked clients.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
