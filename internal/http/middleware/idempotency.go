// Package middleware contains the Gin middleware shared by the receipt API.
//
// IdempotencyValidator checks the optional Idempotency-Key header on unsafe
// requests. A valid key is stashed for the handler; when the lookup finds a
// receipt already stored under that key, the receipt id is stashed too so the
// handler can replay it instead of storing the receipt a second time.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set on responses served from a prior request.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.receipt" // string: receipt id recorded for the key

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts allowed characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup resolves a key to the receipt id recorded for it.
// found is false for unknown or expired keys. Lookup errors never block the
// request; the handler then proceeds as if the key were new.
type IdempotencyLookup func(ctx context.Context, key string, now time.Time) (receiptID string, found bool, err error)

// GetIdempotencyKey returns the validated key, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s := asString(v)
	return s, s != ""
}

// ReplayedReceipt returns the receipt id previously stored under this
// request's key.
func ReplayedReceipt(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemReplay)
	s := asString(v)
	return s, s != ""
}

// IdempotencyValidator validates the Idempotency-Key header on POST, PUT and
// PATCH requests. Invalid keys are rejected with 400 bad_idempotency_key;
// requests without a key pass through untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			id, found, err := lookup(c.Request.Context(), key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case found && id != "":
				c.Set(ctxKeyIdemReplay, id)
			}
		}

		c.Next()
	}
}
