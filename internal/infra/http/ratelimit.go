package http

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// writeRetryAfter rounds up to whole seconds; a zero wait is never advertised.
func writeRetryAfter(c *gin.Context, wait time.Duration) {
	secs := int64(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.FormatInt(secs, 10))
}

func writeRateLimitHeaders(c *gin.Context, limit, remaining int, resetAt time.Time) {
	if limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(limit))
	}
	if remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
	}
	if !resetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}
