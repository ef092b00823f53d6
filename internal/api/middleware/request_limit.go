// Package middleware provides the gin middleware used by the inkledger server.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/config"
)

// RequestSizeLimitMiddleware caps request bodies at the size returned by
// getMaxBytes, read per request so hot-reloaded limits apply immediately.
// http.MaxBytesReader makes oversized reads fail and closes the connection.
func RequestSizeLimitMiddleware(getMaxBytes func() int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		maxBytes := int64(0)
		if getMaxBytes != nil {
			maxBytes = getMaxBytes()
		}
		if maxBytes <= 0 {
			maxBytes = config.DefaultMaxUploadBytes
		}
		if c.Request.ContentLength > maxBytes {
			c.Header("Connection", "close")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": gin.H{"code": "PAYLOAD_TOO_LARGE", "message": "request body too large"},
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
