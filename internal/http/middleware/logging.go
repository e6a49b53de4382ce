// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file owns request correlation and panic handling. RequestID stamps
// every request with an X-Request-ID and tags the active trace span with it.
// Recovery turns a panicking handler into the standard JSON error envelope.
// LoggerFrom hands handlers the request-scoped logger built by
// RedactingLogger.
//
// Install order: RequestID, RedactingLogger, Recovery. The recovery log line
// then carries request_id and client_id.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"

	// maxRequestIDLen bounds caller-supplied IDs; longer values are replaced.
	maxRequestIDLen = 128
	// maxQueryLogLength caps the raw query bytes written to the access log.
	maxQueryLogLength = 2048
	loggerKey         = "logger"
)

// RequestID reuses a well-formed inbound X-Request-ID or mints a UUIDv4. The
// ID is echoed on the response, stored in the Gin context and recorded on
// the current span as "http.request_id".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)

		trace.SpanFromContext(c.Request.Context()).
			SetAttributes(attribute.String("http.request_id", rid))

		c.Next()
	}
}

// validRequestID accepts non-empty printable ASCII up to maxRequestIDLen so
// that log lines and headers cannot be split by a hostile value.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestIDFrom returns the correlation ID set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Recovery converts a panic into a 500 with the shared error envelope:
//
//	{ "request_id": "...", "code": "internal_error", "message": "internal server error" }
//
// The panic and its stack go to the request-scoped logger and are recorded on
// the active span. If the handler already started the response only the status
// is forced.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)

			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			span := trace.SpanFromContext(c.Request.Context())
			span.RecordError(fmt.Errorf("panic: %v", rec))
			span.SetStatus(codes.Error, "panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			abortJSON(c, http.StatusInternalServerError, CodeInternal, "internal server error")
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, falling back to the global
// logger when RedactingLogger is not installed. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes plus an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
