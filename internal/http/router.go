// Package httpapi wires the Gin transport to the receipt ledger: middleware,
// the receipt endpoints, health, metrics and API docs.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (attaches the request-scoped logger)
//  4. Recovery
//  5. Body size limit
//  6. Gzip
//  7. Metrics
//  8. Idempotency-Key validation and replay lookup
//  9. CORS and security headers
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/receipt-processor/docs" // registers the OpenAPI document
	"github.com/tbourn/receipt-processor/internal/config"
	"github.com/tbourn/receipt-processor/internal/http/handlers"
	"github.com/tbourn/receipt-processor/internal/http/middleware"
	"github.com/tbourn/receipt-processor/internal/repo"
	"github.com/tbourn/receipt-processor/internal/services"
)

// Ledger is what the router needs from the receipt ledger.
type Ledger interface {
	handlers.ReceiptLedger
	Stats(ctx context.Context) (services.LedgerStats, error)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	services.LedgerStats
}

// RegisterRoutes attaches middleware and endpoints to r. idem records
// Idempotency-Key bindings; nil disables replay.
func RegisterRoutes(r *gin.Engine, ledger Ledger, idem handlers.IdempotencyStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyLookup(idem)))

	r.Use(corsMiddleware(cfg.CORS)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(ledger))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(ledger, idem, cfg.IdempotencyTTL)
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/receipts/process", h.ProcessReceipt)
		api.GET("/receipts/:id/points", h.GetPoints)
	}
}

// health godoc
// @ID       health
// @Summary  Liveness and ledger size
// @Tags     Ops
// @Produce  json
// @Success  200  {object}  httpapi.HealthResponse
// @Failure  500  {object}  handlers.ErrorResponse
// @Router   /health [get]
func health(ledger Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := ledger.Stats(c.Request.Context())
		if err != nil {
			handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal, "ledger unavailable")
			return
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", LedgerStats: st})
	}
}

// idempotencyLookup adapts an IdempotencyStore to the middleware callback.
// Unknown and expired keys are misses, not errors.
func idempotencyLookup(idem handlers.IdempotencyStore) middleware.IdempotencyLookup {
	if idem == nil {
		return nil
	}
	return func(ctx context.Context, key string, now time.Time) (string, bool, error) {
		rec, err := idem.GetIdempotency(ctx, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return "", false, nil
		case err != nil:
			return "", false, err
		}
		return rec.ReceiptID, true, nil
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// only the allowlist.
func corsMiddleware(cfg config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", middleware.HeaderIdempotencyReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
		// ACAO on every response, including requests without an Origin header.
		star := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{star, cors.New(base)}
	}
	base.AllowOrigins = cfg.AllowedOrigins
	return []gin.HandlerFunc{cors.New(base)}
}

// limitBody caps request bodies at maxBytes; larger bodies fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
