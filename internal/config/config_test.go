package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Usage.MaxEntries != 1000 || cfg.Usage.MaxMirrorLines != 10000 {
		t.Errorf("unexpected caps: %+v", cfg.Usage)
	}
	if cfg.Usage.QuotaBytes != 5*1024*1024 {
		t.Errorf("QuotaBytes = %d", cfg.Usage.QuotaBytes)
	}
	if cfg.Usage.RateLimitWindow != time.Minute || cfg.Usage.RateLimitThreshold != 10 {
		t.Errorf("unexpected rate-limit policy: %+v", cfg.Usage)
	}
	if cfg.Recognition.Pricing.InputPerMillion != 3.50 || cfg.Recognition.Pricing.OutputPerMillion != 10.50 {
		t.Errorf("unexpected pricing: %+v", cfg.Recognition.Pricing)
	}
}

func TestLoadConfigOptional_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfigOptional(path, true)
	if err != nil {
		t.Fatalf("LoadConfigOptional: %v", err)
	}
	if cfg.Recognition.Model != DefaultModel {
		t.Errorf("Model = %q, want default", cfg.Recognition.Model)
	}

	if _, err := LoadConfigOptional(path, false); err == nil {
		t.Error("expected error when the file is required")
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
port: 9000
recognition:
  model: gemini-2.5-flash
  timeout: 90s
usage:
  dsn: memory://
  max-entries: 50
  rate-limit-window: 2m
  rate-limit-markers: ["429"]
  timezone: UTC
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Recognition.Model != "gemini-2.5-flash" || cfg.Recognition.Timeout != 90*time.Second {
		t.Errorf("unexpected recognition: %+v", cfg.Recognition)
	}
	if cfg.Usage.MaxEntries != 50 || cfg.Usage.RateLimitWindow != 2*time.Minute {
		t.Errorf("unexpected usage: %+v", cfg.Usage)
	}
	if len(cfg.Usage.RateLimitMarkers) != 1 || cfg.Usage.RateLimitMarkers[0] != "429" {
		t.Errorf("RateLimitMarkers = %v", cfg.Usage.RateLimitMarkers)
	}
	// untouched keys keep their defaults
	if cfg.Usage.MaxMirrorLines != DefaultMaxMirrorLines {
		t.Errorf("MaxMirrorLines = %d", cfg.Usage.MaxMirrorLines)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestLoadConfig_JSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	data := `{
  // comments are allowed
  "port": 8400,
  "usage": {"dsn": "memory://",},
}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 8400 || cfg.Usage.DSN != "memory://" {
		t.Errorf("unexpected config: port=%d dsn=%q", cfg.Port, cfg.Usage.DSN)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{name: "bad dsn", data: "usage:\n  dsn: mysql://x\n", field: "usage.dsn"},
		{name: "bad timezone", data: "usage:\n  timezone: Mars/Olympus\n", field: "usage.timezone"},
		{name: "bad temperature", data: "recognition:\n  temperature: 3\n", field: "recognition.temperature"},
		{name: "negative pricing", data: "recognition:\n  pricing:\n    output-per-million: -1\n", field: "recognition.pricing.output-per-million"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), ".yaml")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestGenerateDefaultConfigYAML_Parses(t *testing.T) {
	cfg, err := Parse(GenerateDefaultConfigYAML(), ".yaml")
	if err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if cfg.Usage.MaxEntries != DefaultMaxEntries {
		t.Errorf("MaxEntries = %d", cfg.Usage.MaxEntries)
	}
	if len(cfg.Usage.RateLimitMarkers) != 4 {
		t.Errorf("RateLimitMarkers = %v", cfg.Usage.RateLimitMarkers)
	}
}

func TestPricing_Cost(t *testing.T) {
	p := Pricing{InputPerMillion: 3.50, OutputPerMillion: 10.50}
	got := p.Cost(1_000_000, 1_000_000)
	if got != 14.0 {
		t.Errorf("Cost = %v, want 14", got)
	}
	if p.Cost(0, 0) != 0 {
		t.Error("zero tokens should cost nothing")
	}
}
