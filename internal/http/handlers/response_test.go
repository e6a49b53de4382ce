package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// helperResult is what one call to a response helper produced.
type helperResult struct {
	w      *httptest.ResponseRecorder
	logs   string
	errors []*gin.Error
}

// runHelper serves one request through h with a fixed request id and a
// scoped logger writing to a buffer.
func runHelper(t *testing.T, h gin.HandlerFunc) helperResult {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var (
		buf bytes.Buffer
		res helperResult
	)
	logger := zerolog.New(&buf)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-h")
		c.Set("logger", &logger)
		c.Next()
		res.errors = c.Errors
	})
	r.Any("/x", h)

	res.w = httptest.NewRecorder()
	r.ServeHTTP(res.w, httptest.NewRequest(http.MethodPost, "/x", nil))
	res.logs = buf.String()
	return res
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error body %q: %v", w.Body.String(), err)
	}
	return er
}

func TestErrorHelpers_Envelope(t *testing.T) {
	cases := []struct {
		name   string
		h      gin.HandlerFunc
		status int
		want   ErrorResponse
		logged bool
	}{
		{
			name:   "exported Fail",
			h:      func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found") },
			status: http.StatusNotFound,
			want:   ErrorResponse{RequestID: "rid-h", Code: ErrCodeNotFound, Message: "route not found"},
		},
		{
			name: "fields kept in order",
			h: func(c *gin.Context) {
				failWithFields(c, http.StatusUnprocessableEntity, ErrCodeInvalidContact, "invalid contact", []string{"lastName", "phone"})
			},
			status: http.StatusUnprocessableEntity,
			want: ErrorResponse{RequestID: "rid-h", Code: ErrCodeInvalidContact, Message: "invalid contact",
				Fields: []string{"lastName", "phone"}},
		},
		{
			name:   "plain 5xx is logged",
			h:      func(c *gin.Context) { fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error") },
			status: http.StatusInternalServerError,
			want:   ErrorResponse{RequestID: "rid-h", Code: ErrCodeInternal, Message: "internal server error"},
			logged: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runHelper(t, tc.h)
			if res.w.Code != tc.status {
				t.Fatalf("status = %d; want %d", res.w.Code, tc.status)
			}
			got := decodeError(t, res.w)
			if got.RequestID != tc.want.RequestID || got.Code != tc.want.Code || got.Message != tc.want.Message ||
				strings.Join(got.Fields, ",") != strings.Join(tc.want.Fields, ",") {
				t.Fatalf("body = %+v; want %+v", got, tc.want)
			}
			if logged := res.logs != ""; logged != tc.logged {
				t.Fatalf("logged = %v; want %v (%s)", logged, tc.logged, res.logs)
			}
			if tc.want.Fields == nil && strings.Contains(res.w.Body.String(), `"fields"`) {
				t.Fatalf("empty fields must be omitted: %s", res.w.Body.String())
			}
		})
	}
}

func TestFailErr_KeepsCauseServerSide(t *testing.T) {
	res := runHelper(t, func(c *gin.Context) {
		failErr(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete contact",
			errors.New("sqlite: database is locked"))
	})

	if res.w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", res.w.Code)
	}
	if got := decodeError(t, res.w); got.Message != "could not delete contact" || got.Code != ErrCodeDeleteFailed {
		t.Fatalf("body = %+v", got)
	}
	if strings.Contains(res.w.Body.String(), "locked") {
		t.Fatalf("cause leaked: %s", res.w.Body.String())
	}
	if !strings.Contains(res.logs, `"level":"error"`) || !strings.Contains(res.logs, "database is locked") ||
		!strings.Contains(res.logs, `"code":"delete_failed"`) {
		t.Fatalf("cause not logged: %s", res.logs)
	}
	if len(res.errors) != 1 || !strings.Contains(res.errors[0].Error(), "locked") {
		t.Fatalf("c.Errors = %v", res.errors)
	}
}

func TestFailErr_NilCause(t *testing.T) {
	res := runHelper(t, func(c *gin.Context) {
		failErr(c, http.StatusServiceUnavailable, ErrCodeInternal, "try again", nil)
	})
	if res.w.Code != http.StatusServiceUnavailable || len(res.errors) != 0 || res.logs != "" {
		t.Fatalf("status=%d errors=%v logs=%s", res.w.Code, res.errors, res.logs)
	}
}

func TestSuccessHelpers(t *testing.T) {
	res := runHelper(t, func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"id": 4}) })
	if res.w.Code != http.StatusCreated || strings.TrimSpace(res.w.Body.String()) != `{"id":4}` {
		t.Fatalf("ok = %d %s", res.w.Code, res.w.Body.String())
	}

	res = runHelper(t, noContent)
	if res.w.Code != http.StatusNoContent || res.w.Body.Len() != 0 {
		t.Fatalf("noContent = %d %q", res.w.Code, res.w.Body.String())
	}
}
