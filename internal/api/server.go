// Package api exposes the usage monitor and recognition over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/api/handlers"
	"github.com/nghyane/inkledger/internal/api/handlers/management"
	"github.com/nghyane/inkledger/internal/api/middleware"
	log "github.com/nghyane/inkledger/internal/logging"
	"github.com/nghyane/inkledger/internal/telemetry"
	"github.com/nghyane/inkledger/internal/usage"
)

// Dependencies are the collaborators the router serves.
type Dependencies struct {
	Ledger     *usage.Ledger
	Quota      management.QuotaReporter
	Recognizer handlers.Recognizer
	// Metrics enables /metrics when non-nil.
	Metrics *telemetry.Metrics
	// ManagementKey returns the current key; an empty key closes management routes.
	ManagementKey func() string
	// MaxUploadBytes returns the current upload limit.
	MaxUploadBytes func() int64
}

// NewRouter builds the gin engine.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.GinLogrusLogger(), middleware.GinLogrusRecovery())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	mgmt := management.NewHandler(deps.Ledger, deps.Quota)
	v0 := r.Group("/v0/management", middleware.ManagementAuth(deps.ManagementKey))
	{
		v0.GET("/usage", mgmt.GetUsage)
		v0.DELETE("/usage", mgmt.DeleteUsage)
		v0.GET("/usage/logs", mgmt.GetUsageLogs)
		v0.GET("/usage/export", mgmt.ExportUsage)
		v0.GET("/usage/quota", mgmt.GetQuota)
	}

	if deps.Recognizer != nil {
		rec := handlers.NewRecognizeHandler(deps.Recognizer)
		v1 := r.Group("/v1", middleware.RequestSizeLimitMiddleware(deps.MaxUploadBytes))
		v1.POST("/recognize", rec.Recognize)
	}
	return r
}

// Server is the HTTP server lifecycle around the router.
type Server struct {
	srv *http.Server
}

func NewServer(port int, deps Dependencies) *Server {
	return &Server{srv: &http.Server{
		Addr:              net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Addr is the listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	log.Infof("inkledger listening on http://%s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
