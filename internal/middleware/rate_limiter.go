package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/blogapi/backend/internal/config"
)

// idleTTL is how long an unused bucket is kept before it is forgotten.
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter hands out one token bucket per key, typically scope plus client IP.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewKeyedRateLimiter allows cfg.Requests events per cfg.Window for each key, with
// cfg.Burst extra capacity. Non-positive values fall back to one event per second.
func NewKeyedRateLimiter(cfg config.RateLimitConfig) *KeyedRateLimiter {
	requests, window, burst := cfg.Requests, cfg.Window, cfg.Burst
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}

	return &KeyedRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow consumes one event from the bucket of key.
func (l *KeyedRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	for k, other := range l.buckets {
		if now.Sub(other.lastSeen) > idleTTL {
			delete(l.buckets, k)
		}
	}

	return b.limiter.AllowN(now, 1)
}

// WithNowFunc allows tests to override the time source.
func (l *KeyedRateLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
