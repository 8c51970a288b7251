// Package telegram is the inbound chat transport: it polls for updates,
// routes commands and free-text messages to the orchestrators, applies a
// per-caller rate limit, and sends replies.
package telegram

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// callerLimiter is an in-memory token-bucket rate limiter with one bucket
// per caller id. Idle buckets are evicted opportunistically during lookups
// to bound memory. Safe for concurrent use.
type callerLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[int64]*visitor
	ttl      time.Duration
	lookups  uint64
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// cleanupEvery controls how often (in lookups) idle buckets are swept.
const cleanupEvery = 64

// newCallerLimiter builds a limiter with the given tokens-per-second and
// burst size. rps <= 0 disables limiting.
func newCallerLimiter(rps float64, burst int) *callerLimiter {
	if burst < 1 {
		burst = 1
	}
	return &callerLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[int64]*visitor),
		ttl:      10 * time.Minute,
	}
}

// Allow reports whether the caller may proceed, consuming one token.
func (l *callerLimiter) Allow(callerID int64) bool {
	if l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lookups++
	if l.lookups%cleanupEvery == 0 {
		l.sweep()
	}

	v, ok := l.visitors[callerID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[callerID] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// sweep drops buckets idle past the TTL. Caller holds the lock.
func (l *callerLimiter) sweep() {
	cutoff := time.Now().Add(-l.ttl)
	for id, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, id)
		}
	}
}
