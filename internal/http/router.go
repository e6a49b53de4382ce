// Package httpapi mounts the contact book's HTTP surface on a Gin engine:
// the global middleware chain, the health and metrics endpoints, and the
// contact routes under the configured base path.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-contact-book/internal/config"
	"github.com/tbourn/go-contact-book/internal/http/handlers"
	"github.com/tbourn/go-contact-book/internal/http/middleware"
	"github.com/tbourn/go-contact-book/internal/services"
)

const (
	defaultBodyLimit = 1 << 20
	metricsPath      = "/metrics"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}

	corsRequestHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		middleware.HeaderClientID, middleware.HeaderIdempotencyKey,
	}

	corsResponseHeaders = []string{
		"X-Request-ID", "Content-Length", "ETag", "Location", handlers.HeaderIdempotencyReplayed,
	}
)

// RegisterRoutes installs the middleware chain and every route on r. db
// holds the idempotency records; book serves the contact routes.
//
// The chain runs in two stages. The observing stage (tracing, request id,
// access log, recovery, body cap, metrics) wraps everything including
// /metrics. The guarding stage (idempotency, rate limit, CORS, security
// headers, gzip) wraps the API. Idempotency precedes the rate limiter so a
// replay is never throttled.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, book *services.ContactBook, cfg config.Config) {
	idem := &services.IdempotencyService{DB: db, TTL: cfg.IdempotencyTTL}

	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Use(observing(cfg)...)
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	r.Use(guarding(cfg, idem)...)
	r.GET("/health", health(book))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(book, idem)
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.GET("/contacts", h.ListContacts)
	api.GET("/contacts/next-id", h.NextContactID)
	api.GET("/contacts/:id", h.GetContact)
	api.POST("/contacts", h.CreateContact)
	api.POST("/contacts/validate", h.ValidateContact)
	api.DELETE("/contacts/:id", h.DeleteContact)
}

func observing(cfg config.Config) []gin.HandlerFunc {
	limit := cfg.MaxBodyBytes
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}),
		middleware.Recovery(),
		limitBody(limit),
		middleware.Metrics(),
	}
}

func guarding(cfg config.Config, idem *services.IdempotencyService) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idem.Exists),
		middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).Handler(),
		cors.New(corsConfig(cfg.CORS.AllowedOrigins)),
		// The list changes on every mutation, so GETs revalidate via ETag.
		middleware.SecurityHeaders(middleware.SecurityOptions{
			EnableHSTS:   cfg.Security.EnableHSTS,
			HSTSMaxAge:   cfg.Security.HSTSMaxAge,
			Revalidate:   true,
			EnablePolicy: true,
		}),
		gzip.Gzip(gzip.DefaultCompression),
	}
}

// corsConfig allows every origin, without credentials, when none are listed.
func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsRequestHeaders,
		ExposeHeaders: corsResponseHeaders,
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}

func health(book *services.ContactBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "contacts": book.Len()})
	}
}

// limitBody caps every request body at maxBytes. Reads past the cap fail
// with *http.MaxBytesError.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts at root for "" and "/".
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
