// Package middleware holds fiber middleware shared by the route groups.
package middleware

import (
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged to. An empty key falls back
// to the client IP.
type KeyFunc func(c *fiber.Ctx) string

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter allows perSecond events per key with bursts of burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: map[string]*rate.Limiter{},
	}
}

// Allow charges one event to key.
func (l *RateLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Forget drops the bucket of key.
func (l *RateLimiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Handler(kf KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		k := ""
		if kf != nil {
			k = kf(c)
		}
		if k == "" {
			k = c.IP()
		}
		if !l.Allow(k) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(l.retryAfter()))
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}

func (l *RateLimiter) get(k string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[k]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters[k] = lim
	return lim
}

// retryAfter is the whole number of seconds until one token refills.
func (l *RateLimiter) retryAfter() int {
	if l.limit <= 0 {
		return 1
	}
	secs := int(1 / float64(l.limit))
	if secs < 1 {
		return 1
	}
	return secs
}
