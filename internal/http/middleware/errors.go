package middleware

import "github.com/gin-gonic/gin"

// Codes written by middleware that rejects a request before any handler runs.
const (
	CodeInternal          = "internal_error"
	CodeRateLimited       = "rate_limited"
	CodeBadIdempotencyKey = "bad_idempotency_key"
)

// abortJSON stops the chain with the same envelope the handlers emit.
func abortJSON(c *gin.Context, status int, code, msg string) {
	rid := RequestIDFrom(c)
	if rid != "" {
		c.Header(requestIDHeader, rid)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": rid,
		"code":       code,
		"message":    msg,
	})
}
