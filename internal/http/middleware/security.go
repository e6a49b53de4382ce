package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional hardening headers.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	// Leave off unless the proxy-to-app hop is also TLS.
	EnableHSTS bool
	HSTSMaxAge time.Duration // <= 0 means 180 days

	// Revalidate sends "private, no-cache" on reads so browsers keep the
	// contact list but must confirm it with If-None-Match. Writes always get
	// no-store because their bodies echo the submitted contact.
	Revalidate bool

	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, plus whatever opt enables.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if cc := cacheControl(c.Request.Method, opt.Revalidate); cc != "" {
			h.Set("Cache-Control", cc)
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		c.Next()
	}
}

func cacheControl(method string, revalidate bool) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		if revalidate {
			return "private, no-cache"
		}
		return ""
	case http.MethodOptions:
		return ""
	default:
		return "no-store"
	}
}

// isHTTPS trusts X-Forwarded-Proto; the service is expected to sit behind a
// proxy that overwrites it.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
