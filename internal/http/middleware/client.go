package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderClientID lets a caller scope its Idempotency-Keys. It is not
// authentication and never selects a rate-limit bucket.
const HeaderClientID = "X-Client-ID"

// DefaultClientID is used when a request carries no client identity.
const DefaultClientID = "anonymous"

// maxClientIDLen bounds header values stored in the idempotency table.
const maxClientIDLen = 128

// ClientID returns the trimmed X-Client-ID header, or DefaultClientID when
// it is missing or longer than maxClientIDLen.
func ClientID(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultClientID
	}
	if h := strings.TrimSpace(c.GetHeader(HeaderClientID)); h != "" && len(h) <= maxClientIDLen {
		return h
	}
	return DefaultClientID
}
