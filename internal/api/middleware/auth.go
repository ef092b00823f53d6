package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/api/handlers"
	log "github.com/nghyane/inkledger/internal/logging"
)

// ManagementKeyHeader is the alternative to a bearer token.
const ManagementKeyHeader = "X-Management-Key"

// ManagementAuth requires the management key as "Authorization: Bearer <key>"
// or in X-Management-Key. With no key configured the routes are closed.
func ManagementAuth(getKey func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		want := ""
		if getKey != nil {
			want = getKey()
		}
		if want == "" {
			handlers.AbortWithError(c, http.StatusForbidden, handlers.ErrCodeForbidden,
				"management API disabled: run `inkledger init` or set INKLEDGER_MANAGEMENT_KEY")
			return
		}

		got := presentedKey(c.Request)
		if got == "" {
			handlers.AbortWithError(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "missing management key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			log.WithField("client", c.ClientIP()).Warn("rejected management request with invalid key")
			handlers.AbortWithError(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "invalid management key")
			return
		}
		c.Next()
	}
}

func presentedKey(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(ManagementKeyHeader))
}
