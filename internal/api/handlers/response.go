// Package handlers holds the HTTP handlers and the shared response envelope.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/buildinfo"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Data any     `json:"data"`
	Meta APIMeta `json:"meta"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// APIError is the standard error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error details.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Standard error codes.
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeWriteFailed     = "WRITE_FAILED"
	ErrCodeTooLarge        = "PAYLOAD_TOO_LARGE"
	ErrCodeNotConfigured   = "NOT_CONFIGURED"
	ErrCodeUpstreamFailure = "UPSTREAM_FAILURE"
)

// RespondOK sends a successful response with data envelope.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{
		Data: data,
		Meta: APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   buildinfo.Version,
		},
	})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIError{
		Error: APIErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// AbortWithError is RespondError for middleware.
func AbortWithError(c *gin.Context, status int, code, message string) {
	RespondError(c, status, code, message)
	c.Abort()
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, message)
}

func RespondInternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}
