package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"device-fleet-manager/internal/logger"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Allow reports whether key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key, time.Now()).Allow()
}

// Prune drops limiters that have been idle longer than ttl.
func (rl *RateLimiter) Prune(now time.Time, ttl time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	pruned := 0
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > ttl {
			delete(rl.limiters, key)
			pruned++
		}
	}
	return pruned
}

// RunCleanup prunes idle limiters until ctx is cancelled.
func (rl *RateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Prune(now, limiterIdleTTL)
		}
	}
}

// clientKey identifies an API-key client by key, a user by id and anyone
// else by IP.
func clientKey(c *gin.Context) string {
	if prefix, _, err := utils.SplitAPIKey(c.GetHeader(APIKeyHeader)); err == nil {
		return "key:" + prefix
	}
	if caller := GetCaller(c); caller != nil {
		return "user:" + caller.AccountID.String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware rejects clients that exceed their bucket with 429.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	retryAfter := "1"
	if rl.rate > 0 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(rl.rate))))
	}

	return func(c *gin.Context) {
		key := clientKey(c)
		if !rl.Allow(key) {
			RequestLogger(c).Warn("Rate limit exceeded",
				zap.String("client", key),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				logger.Event("rate_limited"),
			)

			c.Header("Retry-After", retryAfter)
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
