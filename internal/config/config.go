// Package config provides configuration management for inkledger.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort               = 8317
	DefaultModel              = "gemini-3-pro-preview"
	DefaultTemperature        = 0.2
	DefaultTimeout            = 5 * time.Minute
	DefaultMaxRetryInterval   = 30 * time.Second
	DefaultQuotaBytes         = 5 * 1024 * 1024
	DefaultMaxEntries         = 1000
	DefaultMaxMirrorLines     = 10000
	DefaultRateLimitWindow    = 60 * time.Second
	DefaultRateLimitThreshold = 10
	DefaultMaxUploadBytes     = 50 * 1024 * 1024
	DefaultInputPerMillion    = 3.50
	DefaultOutputPerMillion   = 10.50

	DefaultStoreDSN = "file://$XDG_DATA_HOME/inkledger/store"
)

// DefaultRateLimitMarkers are the substrings that classify an error message as
// a rate-limit response. Matching is case-sensitive.
var DefaultRateLimitMarkers = []string{"503", "overloaded", "quota", "rate limit"}

// Config is the root configuration document.
type Config struct {
	Port          int    `yaml:"port" json:"port"`
	Debug         bool   `yaml:"debug" json:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file" json:"logging-to-file"`
	LogDir        string `yaml:"log-dir,omitempty" json:"log-dir,omitempty"`

	Recognition Recognition     `yaml:"recognition" json:"recognition"`
	Usage       UsageConfig     `yaml:"usage" json:"usage"`
	API         APIConfig       `yaml:"api" json:"api"`
	Telemetry   TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// UsageConfig controls the usage ledger and the store that backs it.
type UsageConfig struct {
	DSN                string        `yaml:"dsn" json:"dsn"`
	QuotaBytes         int64         `yaml:"quota-bytes" json:"quota-bytes"`
	MaxEntries         int           `yaml:"max-entries" json:"max-entries"`
	MaxMirrorLines     int           `yaml:"max-mirror-lines" json:"max-mirror-lines"`
	RateLimitWindow    time.Duration `yaml:"rate-limit-window" json:"rate-limit-window"`
	RateLimitThreshold int           `yaml:"rate-limit-threshold" json:"rate-limit-threshold"`
	RateLimitMarkers   []string      `yaml:"rate-limit-markers,omitempty" json:"rate-limit-markers,omitempty"`
	// Timezone is an IANA name used for day boundaries. Empty means local time.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
}

// APIConfig holds HTTP surface limits.
type APIConfig struct {
	MaxUploadBytes int64 `yaml:"max-upload-bytes" json:"max-upload-bytes"`
}

// TelemetryConfig enables tracing export and the metrics endpoint.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp-endpoint,omitempty" json:"otlp-endpoint,omitempty"`
	Metrics      bool   `yaml:"metrics" json:"metrics"`
}

// NewDefaultConfig returns a Config populated with built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Port: DefaultPort,
		Recognition: Recognition{
			Model:            DefaultModel,
			Temperature:      DefaultTemperature,
			Timeout:          DefaultTimeout,
			MaxRetryInterval: DefaultMaxRetryInterval,
			Pricing: Pricing{
				InputPerMillion:  DefaultInputPerMillion,
				OutputPerMillion: DefaultOutputPerMillion,
			},
		},
		Usage: UsageConfig{
			DSN:                DefaultStoreDSN,
			QuotaBytes:         DefaultQuotaBytes,
			MaxEntries:         DefaultMaxEntries,
			MaxMirrorLines:     DefaultMaxMirrorLines,
			RateLimitWindow:    DefaultRateLimitWindow,
			RateLimitThreshold: DefaultRateLimitThreshold,
			RateLimitMarkers:   append([]string(nil), DefaultRateLimitMarkers...),
		},
		API:       APIConfig{MaxUploadBytes: DefaultMaxUploadBytes},
		Telemetry: TelemetryConfig{Metrics: true},
	}
}

// LoadConfig reads and validates the config file at path.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigOptional(path, false)
}

// LoadConfigOptional reads the config file at path. When optional is true a
// missing or empty file yields the defaults instead of an error.
func LoadConfigOptional(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if optional {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("config file %s is empty", path)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a config document. JSON and JSONC (by extension) are
// standardized first; everything else is treated as YAML.
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		data = std
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Sanitize trims string fields and restores defaults for zero values.
func (cfg *Config) Sanitize() {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	cfg.LogDir = strings.TrimSpace(cfg.LogDir)
	cfg.Recognition.sanitize()

	u := &cfg.Usage
	u.DSN = strings.TrimSpace(u.DSN)
	if u.DSN == "" {
		u.DSN = DefaultStoreDSN
	}
	if u.QuotaBytes <= 0 {
		u.QuotaBytes = DefaultQuotaBytes
	}
	if u.MaxEntries <= 0 {
		u.MaxEntries = DefaultMaxEntries
	}
	if u.MaxMirrorLines <= 0 {
		u.MaxMirrorLines = DefaultMaxMirrorLines
	}
	if u.RateLimitWindow <= 0 {
		u.RateLimitWindow = DefaultRateLimitWindow
	}
	if u.RateLimitThreshold <= 0 {
		u.RateLimitThreshold = DefaultRateLimitThreshold
	}
	markers := u.RateLimitMarkers[:0]
	for _, m := range u.RateLimitMarkers {
		if m != "" {
			markers = append(markers, m)
		}
	}
	u.RateLimitMarkers = markers
	if len(u.RateLimitMarkers) == 0 {
		u.RateLimitMarkers = append([]string(nil), DefaultRateLimitMarkers...)
	}
	u.Timezone = strings.TrimSpace(u.Timezone)

	if cfg.API.MaxUploadBytes <= 0 {
		cfg.API.MaxUploadBytes = DefaultMaxUploadBytes
	}
	cfg.Telemetry.OTLPEndpoint = strings.TrimSpace(cfg.Telemetry.OTLPEndpoint)
}

// Validate reports the first invalid field.
func (cfg *Config) Validate() error {
	if cfg.Port > 65535 {
		return &ValidationError{Field: "port", Message: fmt.Sprintf("%d is out of range", cfg.Port)}
	}
	if err := cfg.Recognition.Validate(); err != nil {
		return err
	}
	if _, err := ParseDSN(cfg.Usage.DSN); err != nil {
		return &ValidationError{Field: "usage.dsn", Message: err.Error()}
	}
	if _, err := cfg.Location(); err != nil {
		return &ValidationError{Field: "usage.timezone", Message: err.Error()}
	}
	return nil
}

// Location resolves usage.timezone. An empty name yields time.Local.
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.Usage.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(cfg.Usage.Timezone)
}

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config error: " + e.Field + ": " + e.Message
}

// GenerateDefaultConfigYAML renders the commented starter config written by
// `inkledger init`.
func GenerateDefaultConfigYAML() []byte {
	return []byte(`# inkledger configuration
port: 8317
debug: false
logging-to-file: false
# log-dir: ~/.local/state/inkledger/logs

recognition:
  # api-key may also come from INKLEDGER_GEMINI_API_KEY, GEMINI_API_KEY or API_KEY
  api-key: ""
  model: gemini-3-pro-preview
  temperature: 0.2
  timeout: 5m
  request-retry: 0
  max-retry-interval: 30s
  pricing:
    input-per-million: 3.50
    output-per-million: 10.50

usage:
  # memory://, file:///dir, sqlite:///path.db, postgres://..., redis://..., s3://...
  dsn: file://$XDG_DATA_HOME/inkledger/store
  quota-bytes: 5242880
  max-entries: 1000
  max-mirror-lines: 10000
  rate-limit-window: 60s
  rate-limit-threshold: 10
  rate-limit-markers: ["503", "overloaded", "quota", "rate limit"]
  timezone: ""

api:
  max-upload-bytes: 52428800

telemetry:
  otlp-endpoint: ""
  metrics: true
`)
}
