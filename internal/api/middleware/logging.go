package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/api/handlers"
	log "github.com/nghyane/inkledger/internal/logging"
)

// GinLogrusLogger logs each request through logrus. Health checks and
// metrics scrapes are logged at debug level.
func GinLogrusLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		entry := log.WithFields(log.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    path,
			"latency": time.Since(start).Round(time.Millisecond).String(),
			"client":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case path == "/healthz" || path == "/metrics":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}

// GinLogrusRecovery turns handler panics into 500 responses.
func GinLogrusRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithField("panic", recovered).WithField("path", c.Request.URL.Path).Error("recovered from panic")
		handlers.AbortWithError(c, http.StatusInternalServerError, handlers.ErrCodeInternalError, "internal server error")
	})
}
