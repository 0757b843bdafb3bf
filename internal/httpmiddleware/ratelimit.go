package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleTTL is how long an unused per-IP limiter is kept.
const idleTTL = 10 * time.Minute

// IPRateLimiter is an in-memory per-IP token bucket limiter.
type IPRateLimiter struct {
	limit rate.Limit
	burst int
	mu    sync.Mutex
	state map[string]*visitor
	now   func() time.Time
}

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// NewIPRateLimiter creates a limiter allowing perMinute requests per IP with
// bursts of up to burst requests.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &IPRateLimiter{
		limit: rate.Limit(float64(perMinute) / 60),
		burst: burst,
		state: make(map[string]*visitor),
		now:   time.Now,
	}
}

// GinMiddleware returns gin handler enforcing per-IP limits.
func (l *IPRateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Allow reports whether a request from key may proceed.
func (l *IPRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	v, ok := l.state[key]
	if !ok {
		l.sweep(now)
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.state[key] = v
	}
	v.last = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for longer than idleTTL. Callers hold mu.
func (l *IPRateLimiter) sweep(now time.Time) {
	for k, v := range l.state {
		if now.Sub(v.last) > idleTTL {
			delete(l.state, k)
		}
	}
}
