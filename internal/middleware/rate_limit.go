package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/devlanding/leads-api/pkg/logger"
	"github.com/devlanding/leads-api/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client's limiter is remembered
const visitorTTL = 3 * time.Minute

// RateLimiter implements an in-memory token bucket per client IP.
// Idle visitors expire out of the cache.
type RateLimiter struct {
	name     string
	visitors *cache.Cache
	mu       sync.Mutex
	r        rate.Limit // requests per second
	b        int        // burst size
}

// NewRateLimiter creates a new rate limiter
// name: label for the visitors gauge (e.g., "leads")
// r: requests per second (e.g., 5 means 5 requests per second)
// b: burst size (e.g., 10 means allow bursts of up to 10 requests)
func NewRateLimiter(name string, r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		name:     name,
		visitors: cache.New(visitorTTL, time.Minute),
		r:        r,
		b:        b,
	}
}

// getVisitor returns the rate limiter for a given IP address and refreshes its TTL
func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, found := rl.visitors.Get(ip); found {
		limiter := v.(*rate.Limiter)
		rl.visitors.Set(ip, limiter, cache.DefaultExpiration)
		return limiter
	}

	limiter := rate.NewLimiter(rl.r, rl.b)
	rl.visitors.Set(ip, limiter, cache.DefaultExpiration)
	return limiter
}

// visitorCount returns the number of tracked clients, expired ones included
// until the janitor runs
func (rl *RateLimiter) visitorCount() int {
	return rl.visitors.ItemCount()
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getVisitor(ip)
		metrics.RateLimitVisitors.WithLabelValues(rl.name).Set(float64(rl.visitorCount()))

		if !limiter.Allow() {
			retryAfter := 1
			if rl.r > 0 {
				retryAfter = int(math.Ceil(1 / float64(rl.r)))
			}
			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("path", c.FullPath()))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
