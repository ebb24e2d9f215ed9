// Package middleware contains the Gin middleware shared by the receipt API.
//
// RedactingLogger is the access logger used in production wiring. It never
// logs bodies, masks credential headers, and scrubs emails, phone numbers and
// UUIDs out of query strings and header values before they reach the log.
// Receipt ids are UUIDs, so they are scrubbed from the access line too; the
// route template keeps the endpoint readable.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex runs inside ids never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced wholesale
// with "[REDACTED]". Matching is case-insensitive; Authorization, Cookie and
// Set-Cookie are always masked.
type RedactOptions struct {
	MaskHeaders []string
}

// Redact scrubs identifiers from s. UUIDs go first so the phone pattern
// cannot eat their digit groups.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger returns a Gin middleware that logs each request with
// sensitive values scrubbed and attaches a request-scoped logger.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = Redact(strings.Join(vv, ", "))
		}

		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", Redact(routeOf(c))).
			Logger()
		attachLogger(c, &scoped)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = scoped.Error()
		case status >= http.StatusBadRequest:
			ev = scoped.Warn()
		default:
			ev = scoped.Info()
		}
		ev.Str("query", Redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
