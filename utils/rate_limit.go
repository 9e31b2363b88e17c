package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"
)

// RateLimiter allows each client IP perMinute requests with bursts up to burst.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters cmap.ConcurrentMap[string, *rate.Limiter]
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:    burst,
		limiters: cmap.New[*rate.Limiter](),
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	limiter := rl.limiters.Upsert(key, nil, func(exist bool, valueInMap, _ *rate.Limiter) *rate.Limiter {
		if exist {
			return valueInMap
		}
		return rate.NewLimiter(rl.limit, rl.burst)
	})
	return limiter.Allow()
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.String(http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
