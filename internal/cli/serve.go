package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/api"
	"github.com/nghyane/inkledger/internal/config"
	log "github.com/nghyane/inkledger/internal/logging"
	"github.com/nghyane/inkledger/internal/telemetry"
	"github.com/nghyane/inkledger/internal/usage"
	"github.com/nghyane/inkledger/internal/util"
	"github.com/nghyane/inkledger/internal/watcher"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	servePort int
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inkledger server",
	Long: `Start the inkledger HTTP server.

It loads the configuration, opens the usage store and serves the recognition
endpoint together with the management API for the usage ledger. The config
file is watched and most settings apply without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := Bootstrap(cfgFile)
		if err != nil {
			return err
		}
		cfg := result.Config
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		return runServer(cmd.Context(), cfg, result.ConfigFilePath)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "server port")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the usage summary in a browser once listening")
	rootCmd.AddCommand(serveCmd)
}

func runServer(parent context.Context, cfg *config.Config, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	tracing, err := telemetry.NewTracing(ctx, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}
	if tracing.Enabled() {
		log.Infof("tracing exported to %s", cfg.Telemetry.OTLPEndpoint)
	}

	svc, err := NewServices(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := svc.Close(); errClose != nil {
			log.WithError(errClose).Warn("failed to close usage store")
		}
	}()
	if !cfg.Recognition.HasAPIKey() {
		log.Warn("no Gemini API key configured; /v1/recognize will answer 503 until one is set")
	}

	var maxUpload atomic.Int64
	maxUpload.Store(cfg.API.MaxUploadBytes)

	w := watcher.New(configPath, cfg, func(oldCfg, newCfg *config.Config) {
		applyReload(svc, &maxUpload, oldCfg, newCfg)
	}, watcher.WithPrepare(func(c *config.Config) {
		applyEnvOverrides(c)
		c.Sanitize()
	}))
	if errWatch := w.Start(); errWatch != nil {
		log.WithError(errWatch).Warn("config hot reload disabled")
	}
	defer w.Stop()

	srv := api.NewServer(cfg.Port, api.Dependencies{
		Ledger:         svc.Ledger,
		Quota:          svc.Store,
		Recognizer:     svc.Client,
		Metrics:        svc.Metrics,
		ManagementKey:  config.GetManagementKey,
		MaxUploadBytes: maxUpload.Load,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if serveOpen {
		url := "http://" + srv.Addr() + "/healthz"
		if errOpen := open.Run(url); errOpen != nil {
			log.WithError(errOpen).Warnf("could not open %s", url)
		}
	}

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Warn("server shutdown")
	}
	if errTrace := tracing.Shutdown(shutdownCtx); errTrace != nil {
		log.WithError(errTrace).Warn("tracing shutdown")
	}
	return err
}

// applyReload pushes the hot-reloadable parts of newCfg into the running
// services. Port, store DSN and telemetry need a restart.
func applyReload(svc *Services, maxUpload *atomic.Int64, oldCfg, newCfg *config.Config) {
	util.SetLogLevel(newCfg)
	if oldCfg.LoggingToFile != newCfg.LoggingToFile || oldCfg.LogDir != newCfg.LogDir {
		if err := log.ConfigureLogOutput(newCfg.LoggingToFile, logDir(newCfg)); err != nil {
			log.WithError(err).Warn("failed to reconfigure log output")
		}
	}

	if policy, err := usage.PolicyFromConfig(newCfg); err != nil {
		log.WithError(err).Warn("usage policy not reloaded")
	} else {
		svc.Ledger.SetPolicy(policy)
	}
	svc.Client.SetConfig(newCfg.Recognition)
	maxUpload.Store(newCfg.API.MaxUploadBytes)
}
