// ratelimit.go implements per-client rate limiting using a token bucket algorithm.
//
// How token bucket works:
// - Each client (keyed by remote IP) gets a "bucket" with N tokens
// - Each request consumes 1 token
// - Tokens refill at a steady rate (N tokens per minute)
// - If the bucket is empty, the request is rejected with 429 Too Many Requests
//
// The bridge only listens on loopback, so in practice there is one client.
// The limit exists to stop a runaway extension loop (say, a zoom button
// bound to a key-repeat handler) from flooding the event queue.
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
)

// RateLimiter tracks request rates per client.
type RateLimiter struct {
	// Go Pattern: A plain sync.Mutex is enough here because every access
	// both reads and writes the bucket.
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute int
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

// bucket tracks the token state for a single client.
type bucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// allowResult contains the result of a rate limit check,
// including header information for the response.
type allowResult struct {
	allowed   bool
	remaining float64
	limit     float64
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
// perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: perMinute,
		now:       time.Now,
		stop:      make(chan struct{}),
	}

	// Start background cleanup goroutine
	go rl.cleanup()

	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// RateLimit returns Gin middleware that enforces per-client limits.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.perMinute <= 0 {
			c.Next()
			return
		}

		// Check rate limit — this returns all info atomically to avoid race conditions
		result := rl.allow(c.ClientIP())
		if !result.allowed {
			// Add headers even for rejected requests so clients know their limits
			c.Header("X-RateLimit-Limit", formatFloat(result.limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Rate limit exceeded. Try again later.",
				Code:    http.StatusTooManyRequests,
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", formatFloat(result.limit))
		c.Header("X-RateLimit-Remaining", formatFloat(result.remaining))

		c.Next()
	}
}

// allow checks if a request should be allowed, consuming a token if so.
func (rl *RateLimiter) allow(clientID string) allowResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[clientID]
	if !exists {
		b = &bucket{
			tokens:     float64(rl.perMinute),
			maxTokens:  float64(rl.perMinute),
			refillRate: float64(rl.perMinute) / 60.0,
			lastRefill: now,
		}
		rl.buckets[clientID] = b
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens < 1.0 {
		return allowResult{
			allowed:   false,
			remaining: 0,
			limit:     b.maxTokens,
		}
	}

	// Consume a token
	b.tokens--
	return allowResult{
		allowed:   true,
		remaining: b.tokens,
		limit:     b.maxTokens,
	}
}

// cleanup periodically removes stale buckets to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	// Go Pattern: time.Ticker sends values at regular intervals.
	// Always defer ticker.Stop() to release resources.
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for id, b := range rl.buckets {
				if now.Sub(b.lastRefill) > 10*time.Minute {
					delete(rl.buckets, id)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// formatFloat converts a float to a string for headers.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.0f", f)
}
