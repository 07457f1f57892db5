package router

import (
	"net/http"
	"sync"
	"time"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RequesterHeader identifies the requester for rate limiting; the client IP is used when absent
const RequesterHeader = "X-Requester-ID"

const (
	defaultLimiterEntries = 10000
	defaultLimiterIdleTTL = 5 * time.Minute
)

// RateLimiter throttles submissions per requester with a token bucket each.
// Buckets live in a bounded LRU and are dropped after ttl without requests,
// so the header cannot grow the key space without limit.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given burst.
// A non-positive perSecond returns nil, which disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return newRateLimiter(perSecond, burst, defaultLimiterEntries, defaultLimiterIdleTTL)
}

func newRateLimiter(perSecond float64, burst, size int, ttl time.Duration) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
	}
}

// Middleware rejects requests over the requester's rate with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(RequesterHeader)
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.getOrCreate(key).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "Too Many Requests"})
			return
		}
		c.Next()
	}
}

// getOrCreate returns the requester's bucket. Re-adding an existing bucket
// restarts its TTL.
func (rl *RateLimiter) getOrCreate(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	rl.limiters.Add(key, limiter)
	return limiter
}

// Len reports the number of tracked requesters
func (rl *RateLimiter) Len() int {
	return rl.limiters.Len()
}
