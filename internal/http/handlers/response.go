// Package handlers serves the contact book over HTTP. Every failure is
// written as an ErrorResponse so clients branch on Code (see errors.go):
//
//	HTTP/1.1 422 Unprocessable Entity
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "invalid_contact",
//	  "message": "invalid contact",
//	  "fields": ["phone"]
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contact-book/internal/http/middleware"
)

// ErrorResponse is the error envelope for every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client report to server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code
	Code string `json:"code" example:"not_found"`
	// Human-readable message, safe to display
	Message string `json:"message" example:"contact not found"`
	// Offending form fields in form order (invalid_contact only)
	Fields []string `json:"fields,omitempty" example:"name,phone"`
}

func fail(c *gin.Context, status int, code, msg string) {
	failWithFields(c, status, code, msg, nil)
}

// failErr reports a server-side failure. err goes to the log and to
// c.Errors; the client only sees msg.
func failErr(c *gin.Context, status int, code, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
		middleware.LoggerFrom(c).Error().Err(err).
			Int("status", status).
			Str("code", code).
			Msg(msg)
	}
	writeError(c, status, ErrorResponse{Code: code, Message: msg})
}

func failWithFields(c *gin.Context, status int, code, msg string, fields []string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Msg(msg)
	}
	writeError(c, status, ErrorResponse{Code: code, Message: msg, Fields: fields})
}

func writeError(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = middleware.RequestIDFrom(c)
	if resp.RequestID == "" {
		resp.RequestID = c.Writer.Header().Get("X-Request-ID")
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail lets the router write NoRoute/NoMethod errors in the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }
