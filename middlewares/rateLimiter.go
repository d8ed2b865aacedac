package middlewares

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/techetime/timeclock_backend/config"
)

const (
	defaultPinAttemptsPerWindow = 10
	defaultPinWindowSeconds     = 60
)

func pinAttemptsPerWindow() int64 {
	if v := os.Getenv("PIN_RATE_LIMIT_ATTEMPTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultPinAttemptsPerWindow
}

func pinWindow() time.Duration {
	if v := os.Getenv("PIN_RATE_LIMIT_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultPinWindowSeconds * time.Second
}

// PinRateLimiter throttles kiosk punch attempts per client IP with a fixed
// redis window, blunting PIN guessing. When Redis is down the limiter fails
// open so a cache outage cannot stop the whole workforce from punching;
// STRICT_PIN_RATE_LIMIT=true flips that to fail closed.
func PinRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "PinAttempts:" + c.ClientIP()
		count, err := config.IncrWithWindow(c.Request.Context(), key, pinWindow())
		if err != nil {
			config.LogError(config.GetLogger(), "rateLimiter.go", "PinRateLimiter", "IncrWithWindow", key, err)
			if config.StrictPinRateLimit() {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
				c.Abort()
				return
			}
			c.Next()
			return
		}
		if count > pinAttemptsPerWindow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again shortly"})
			c.Abort()
			return
		}
		c.Next()
	}
}
