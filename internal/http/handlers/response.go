// Package handlers provides the HTTP handlers of the receipt API.
//
// This file holds the response helpers shared by every endpoint: the error
// envelope written by fail() and the plain JSON writer ok().
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/receipt-processor/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"bad_request"`
	// Human-readable message
	Message string `json:"message" example:"The receipt is invalid."`
	// Per-field validation problems, when there are any
	Details []string `json:"details,omitempty" example:"items[0].price failed amount"`
}

// fail aborts the request with an ErrorResponse. 5xx responses are logged
// through the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string, details ...string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Details:   details,
	})
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as JSON with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
