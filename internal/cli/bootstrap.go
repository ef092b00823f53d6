// Package cli provides the Cobra-based command-line interface for inkledger.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/nghyane/inkledger/internal/cli/env"
	"github.com/nghyane/inkledger/internal/config"
	log "github.com/nghyane/inkledger/internal/logging"
	"github.com/nghyane/inkledger/internal/recognition"
	"github.com/nghyane/inkledger/internal/resilience"
	"github.com/nghyane/inkledger/internal/session"
	"github.com/nghyane/inkledger/internal/store"
	"github.com/nghyane/inkledger/internal/telemetry"
	"github.com/nghyane/inkledger/internal/usage"
	"github.com/nghyane/inkledger/internal/util"
)

// BootstrapResult contains the result of bootstrapping the application.
type BootstrapResult struct {
	Config         *config.Config
	ConfigFilePath string
}

// Bootstrap loads .env, the config file and environment overrides, and
// configures logging. It does not touch the usage store.
func Bootstrap(configPath string) (*BootstrapResult, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	defaultConfigPath := config.DefaultConfigPath()
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if resolved, errResolve := util.ResolvePath(configPath); errResolve == nil {
		configPath = resolved
	}
	if configPath == defaultConfigPath && !fileExists(configPath) {
		autoInitConfig(configPath)
	}

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := prepareConfig(cfg); err != nil {
		return nil, err
	}

	util.SetLogLevel(cfg)
	if err := log.ConfigureLogOutput(cfg.LoggingToFile, logDir(cfg)); err != nil {
		return nil, fmt.Errorf("failed to configure log output: %w", err)
	}

	return &BootstrapResult{
		Config:         cfg,
		ConfigFilePath: configPath,
	}, nil
}

// prepareConfig applies env overrides and re-validates the result.
func prepareConfig(cfg *config.Config) error {
	applyEnvOverrides(cfg)
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration after env overrides: %w", err)
	}
	return nil
}

// logDir picks log-dir, then $WRITABLE_PATH/logs, then the XDG state dir.
func logDir(cfg *config.Config) string {
	if cfg.LogDir != "" {
		if dir, err := util.ResolvePath(cfg.LogDir); err == nil {
			return dir
		}
		return cfg.LogDir
	}
	if wp := util.WritablePath(); wp != "" {
		return filepath.Join(wp, "logs")
	}
	return util.DefaultLogDir()
}

// autoInitConfig silently creates config on first run
func autoInitConfig(configPath string) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return
	}
	if err := os.WriteFile(configPath, config.GenerateDefaultConfigYAML(), 0o600); err != nil {
		return
	}
	fmt.Fprintf(os.Stderr, "First run: created config at %s\n", configPath)
}

// applyEnvOverrides applies environment variable overrides for container deployment.
func applyEnvOverrides(cfg *config.Config) {
	if port, ok := env.LookupEnvInt("INKLEDGER_PORT"); ok {
		cfg.Port = port
		log.Infof("Port overridden by env: %d", port)
	}

	if debug, ok := env.LookupEnvBool("INKLEDGER_DEBUG"); ok {
		cfg.Debug = debug
		log.Infof("Debug overridden by env: %v", debug)
	}

	if loggingToFile, ok := env.LookupEnvBool("INKLEDGER_LOGGING_TO_FILE"); ok {
		cfg.LoggingToFile = loggingToFile
		log.Infof("Logging to file overridden by env: %v", loggingToFile)
	}

	if dsn, ok := env.LookupEnv("INKLEDGER_USAGE_DSN"); ok {
		cfg.Usage.DSN = dsn
		log.Infof("Usage DSN overridden by env")
	}

	if tz, ok := env.LookupEnv("INKLEDGER_TIMEZONE"); ok {
		cfg.Usage.Timezone = tz
		log.Infof("Usage timezone overridden by env: %s", tz)
	}

	if key, ok := env.LookupEnv("INKLEDGER_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"); ok {
		cfg.Recognition.APIKey = key
		log.Debugf("Gemini API key taken from env")
	}

	if model, ok := env.LookupEnv("INKLEDGER_MODEL"); ok {
		cfg.Recognition.Model = model
		log.Infof("Model overridden by env: %s", model)
	}

	if retry, ok := env.LookupEnvInt("INKLEDGER_REQUEST_RETRY"); ok {
		cfg.Recognition.RequestRetry = retry
		log.Infof("Request retry overridden by env: %d", retry)
	}

	if maxRetryInterval, ok := env.LookupEnvDuration("INKLEDGER_MAX_RETRY_INTERVAL"); ok {
		cfg.Recognition.MaxRetryInterval = maxRetryInterval
		log.Infof("Max retry interval overridden by env: %s", maxRetryInterval)
	}

	if endpoint, ok := env.LookupEnv("INKLEDGER_OTLP_ENDPOINT"); ok {
		cfg.Telemetry.OTLPEndpoint = endpoint
		log.Infof("OTLP endpoint overridden by env")
	}
}

// Services are the long-lived collaborators built from a config.
type Services struct {
	Store   *store.QuotaStore
	Ledger  *usage.Ledger
	Client  *recognition.Client
	Metrics *telemetry.Metrics
}

// NewServices opens the usage store and wires the ledger and the recognition
// client to it. Metrics are created only when withMetrics is set and enabled
// in cfg.
func NewServices(ctx context.Context, cfg *config.Config, withMetrics bool) (*Services, error) {
	dsn, err := config.ParseDSN(cfg.Usage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usage DSN: %w", err)
	}
	st, err := store.Open(ctx, dsn, cfg.Usage.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage store %s: %w", dsn.Redacted(), err)
	}
	log.Debugf("usage store: %s", dsn.Redacted())

	policy, err := usage.PolicyFromConfig(cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to build usage policy: %w", err)
	}

	svc := &Services{Store: st}
	opts := []usage.Option{usage.WithPolicy(policy)}
	if withMetrics && cfg.Telemetry.Metrics {
		svc.Metrics = telemetry.NewMetrics()
		opts = append(opts, usage.WithObserver(svc.Metrics.ObserveEntry))
	}

	sessionID := session.GetOrCreate(session.NewMemoryStore())
	svc.Ledger = usage.NewLedger(st, sessionID, opts...)
	svc.Client = recognition.NewClient(cfg.Recognition, svc.Ledger,
		recognition.WithBreaker(resilience.DefaultBreakerConfig("gemini")))
	return svc, nil
}

// Close releases the usage store.
func (s *Services) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// DoInitConfig handles the init command with smart behavior.
func DoInitConfig(configPath string, force bool) error {
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	if resolved, err := util.ResolvePath(configPath); err == nil {
		configPath = resolved
	}
	credPath := config.CredentialsFilePath()

	configExists := fileExists(configPath)
	credExists := fileExists(credPath)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if !configExists {
		if err := os.WriteFile(configPath, config.GenerateDefaultConfigYAML(), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Created: %s\n", configPath)
	}

	if credExists && !force {
		if key := config.GetManagementKey(); key != "" {
			fmt.Printf("Management key: %s\n", key)
			fmt.Printf("Location: %s\n", credPath)
			fmt.Println("Use init --force to regenerate")
			return nil
		}
	}

	key, err := config.CreateCredentials()
	if err != nil {
		return fmt.Errorf("failed to create credentials: %w", err)
	}

	if credExists && force {
		fmt.Println("Regenerated management key:")
	} else {
		fmt.Println("Generated management key:")
	}
	fmt.Printf("  %s\n", key)
	fmt.Printf("Location: %s\n", credPath)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
