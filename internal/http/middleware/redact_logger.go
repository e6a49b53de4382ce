package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions tunes RedactingLogger. MaskHeaders names extra headers
// (case-insensitive) whose values are replaced wholesale, on top of
// Authorization, Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

const masked = "[REDACTED]"

type scrubRule struct {
	re    *regexp.Regexp
	label string
}

// scrubRules run in order. The phone patterns are the loosest, so ids and
// emails are replaced before they can match pieces of them.
var scrubRules = []scrubRule{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	// Russian grouping: +7 (912) 345-67-89, 8 912 345 67 89, 9123456789.
	{regexp.MustCompile(`(?:\+?[78][ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{2}[ .-]?\d{2}\b`), "[REDACTED:phone]"},
	// International: +1 212-555-1212, (212) 555-1212.
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// Redact replaces UUIDs, email addresses and phone numbers in s with
// labelled placeholders.
func Redact(s string) string {
	for _, r := range scrubRules {
		s = r.re.ReplaceAllString(s, r.label)
	}
	return s
}

// RedactQuery redacts a raw query string pair by pair, decoding each key
// and value first so an escaped "+7%20912..." is still caught. The result
// is for logs and is not re-encoded.
func RedactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for i, pair := range strings.Split(raw, "&") {
		if i > 0 {
			b.WriteByte('&')
		}
		k, v, hasValue := strings.Cut(pair, "=")
		b.WriteString(Redact(unescape(k)))
		if hasValue {
			b.WriteByte('=')
			b.WriteString(Redact(unescape(v)))
		}
	}
	return b.String()
}

// unescape keeps malformed escapes as they are.
func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

type headerMask map[string]bool

func newHeaderMask(extra []string) headerMask {
	m := headerMask{"authorization": true, "cookie": true, "set-cookie": true}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = true
		}
	}
	return m
}

// dict renders h in name order with masked headers blanked and the rest
// redacted.
func (m headerMask) dict(h http.Header) *zerolog.Event {
	d := zerolog.Dict()
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		if m[strings.ToLower(k)] {
			d.Str(k, masked)
		} else {
			d.Str(k, Redact(strings.Join(h[k], ", ")))
		}
	}
	return d
}

func accessLevel(status int, failed bool) zerolog.Level {
	switch {
	case failed || status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// RedactingLogger writes one "http_request" line per request and exposes
// a request-scoped logger to handlers through LoggerFrom. Bodies are never
// logged. Query values and headers pass through Redact, and sensitive
// headers are masked. 4xx lines are WARN. 5xx lines, and requests that
// recorded errors on the context, are ERROR.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := newHeaderMask(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("client_id", ClientID(c)).
			Str("method", c.Request.Method).
			Str("path", route).
			Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		rid := c.Writer.Header().Get(requestIDHeader)
		if rid == "" {
			rid = c.GetHeader(requestIDHeader)
		}
		status := c.Writer.Status()

		ev := log.WithLevel(accessLevel(status, len(c.Errors) > 0))
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("request_id", rid).
			Str("client_id", ClientID(c)).
			Str("method", c.Request.Method).
			Str("path", route).
			Str("query", truncate(RedactQuery(c.Request.URL.RawQuery), maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Dict("headers", mask.dict(c.Request.Header)).
			Msg("http_request")
	}
}
