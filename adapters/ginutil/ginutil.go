// Package ginutil holds shared helpers for the gin handlers.
package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Named rate-limit buckets.
const (
	RLEntitlementsGet = "entitlements_get"
)

// RateLimiter is the gate handlers consult before doing work. Both the
// in-memory and redis limiters implement it.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// AllowNamed checks the limiter for the caller's IP. A nil limiter and a
// limiter error both allow the request; rate limiting fails open.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(bucket, c.ClientIP())
	if err != nil {
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, code string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}

func TooMany(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerError(c *gin.Context, code string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": code})
}
