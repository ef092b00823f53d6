package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nghyane/inkledger/internal/config"
	"github.com/nghyane/inkledger/internal/usage"
	"github.com/tidwall/gjson"
)

// clearEnv blanks every variable applyEnvOverrides reads so the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INKLEDGER_PORT", "INKLEDGER_DEBUG", "INKLEDGER_LOGGING_TO_FILE",
		"INKLEDGER_USAGE_DSN", "INKLEDGER_TIMEZONE", "INKLEDGER_GEMINI_API_KEY",
		"GEMINI_API_KEY", "API_KEY", "INKLEDGER_MODEL", "INKLEDGER_REQUEST_RETRY",
		"INKLEDGER_MAX_RETRY_INTERVAL", "INKLEDGER_OTLP_ENDPOINT",
		config.ManagementKeyEnv,
	} {
		t.Setenv(key, "")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INKLEDGER_PORT", "9100")
	t.Setenv("INKLEDGER_DEBUG", "true")
	t.Setenv("INKLEDGER_USAGE_DSN", "memory://")
	t.Setenv("INKLEDGER_GEMINI_API_KEY", "primary-key")
	t.Setenv("API_KEY", "fallback-key")
	t.Setenv("INKLEDGER_MODEL", "gemini-2.5-flash")
	t.Setenv("INKLEDGER_REQUEST_RETRY", "2")
	t.Setenv("INKLEDGER_MAX_RETRY_INTERVAL", "45")

	cfg := config.NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Usage.DSN != "memory://" {
		t.Errorf("DSN = %q", cfg.Usage.DSN)
	}
	if cfg.Recognition.APIKey != "primary-key" {
		t.Errorf("APIKey = %q, want primary-key", cfg.Recognition.APIKey)
	}
	if cfg.Recognition.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", cfg.Recognition.Model)
	}
	if cfg.Recognition.RequestRetry != 2 {
		t.Errorf("RequestRetry = %d", cfg.Recognition.RequestRetry)
	}
	if cfg.Recognition.MaxRetryInterval != 45*time.Second {
		t.Errorf("MaxRetryInterval = %s", cfg.Recognition.MaxRetryInterval)
	}
}

func TestApplyEnvOverrides_APIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "fallback-key")

	cfg := config.NewDefaultConfig()
	applyEnvOverrides(cfg)
	if cfg.Recognition.APIKey != "fallback-key" {
		t.Errorf("APIKey = %q, want fallback-key", cfg.Recognition.APIKey)
	}
}

func TestApplyEnvOverrides_UnsetLeavesConfig(t *testing.T) {
	clearEnv(t)

	cfg := config.NewDefaultConfig()
	cfg.Recognition.APIKey = "from-file"
	applyEnvOverrides(cfg)

	if cfg.Recognition.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want from-file", cfg.Recognition.APIKey)
	}
	if cfg.Port != config.DefaultPort {
		t.Errorf("Port = %d", cfg.Port)
	}
}

func TestPrepareConfig_RejectsBadOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("INKLEDGER_USAGE_DSN", "ftp://nowhere")

	if err := prepareConfig(config.NewDefaultConfig()); err == nil {
		t.Fatal("expected an error for an unsupported DSN")
	}
}

func TestDoInitConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	config.InvalidateCache()
	t.Cleanup(config.InvalidateCache)

	configPath := filepath.Join(dir, "inkledger", "config.yaml")
	if err := DoInitConfig(configPath, false); err != nil {
		t.Fatalf("DoInitConfig: %v", err)
	}
	if _, err := config.LoadConfig(configPath); err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	first := readManagementKey(t)
	if len(first) != 2*config.ManagementKeyLength {
		t.Fatalf("management key %q has unexpected length", first)
	}

	if err := DoInitConfig(configPath, false); err != nil {
		t.Fatalf("second DoInitConfig: %v", err)
	}
	if got := readManagementKey(t); got != first {
		t.Errorf("key changed without --force: %q -> %q", first, got)
	}

	if err := DoInitConfig(configPath, true); err != nil {
		t.Fatalf("forced DoInitConfig: %v", err)
	}
	if got := readManagementKey(t); got == first {
		t.Error("--force should regenerate the key")
	}
}

func readManagementKey(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(config.CredentialsFilePath())
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	return gjson.GetBytes(data, "management-key").String()
}

func TestParseRange(t *testing.T) {
	loc := time.UTC

	from, to, err := parseRange("2026-03-01", "2026-03-02", loc)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if !from.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, loc)) {
		t.Errorf("from = %s", from)
	}
	if want := time.Date(2026, 3, 3, 0, 0, 0, 0, loc).Add(-time.Nanosecond); !to.Equal(want) {
		t.Errorf("to = %s, want %s", to, want)
	}

	from, to, err = parseRange("2026-03-01T10:00:00Z", "", loc)
	if err != nil {
		t.Fatalf("parseRange RFC 3339: %v", err)
	}
	if from.Hour() != 10 || !to.IsZero() {
		t.Errorf("from = %s, to = %s", from, to)
	}

	if _, _, err := parseRange("2026-03-02", "2026-03-01", loc); err == nil {
		t.Error("expected error when --to precedes --from")
	}
	if _, _, err := parseRange("yesterday", "", loc); err == nil {
		t.Error("expected error for an unparsable date")
	}
}

func TestExportPath(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if got, want := exportPath(dir, usage.FormatJSON, now), filepath.Join(dir, "quota-log-2026-03-01.json"); got != want {
		t.Errorf("exportPath(dir) = %q, want %q", got, want)
	}
	file := filepath.Join(dir, "out.txt")
	if got := exportPath(file, usage.FormatText, now); got != file {
		t.Errorf("exportPath(file) = %q, want %q", got, file)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	writeSummary(&buf, "All time", usage.Summary{
		TotalRequests:      1234,
		SuccessfulRequests: 1200,
		FailedRequests:     30,
		TotalTokens:        1_500_000,
		TotalCost:          12.5,
	})
	out := buf.String()
	for _, want := range []string{"All time", "1,234", "1,200 ok", "1,500,000", "$12.5000"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	usageLogsFrom, usageLogsTo, usageLogsJSON = "", "", false
	usageExportFormat, usageExportOutput = "txt", ""
	usageClearYes = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUsageCommands(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	storeDir := filepath.Join(dir, "store")
	configPath := filepath.Join(dir, "config.yaml")
	doc := "usage:\n  dsn: file://" + filepath.ToSlash(storeDir) + "\n"
	if err := os.WriteFile(configPath, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	ctx := context.Background()
	svc, err := NewServices(ctx, cfg, false)
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	res := svc.Ledger.LogSuccess(ctx, usage.SuccessParams{
		Model:            "gemini-3-pro-preview",
		FilesProcessed:   2,
		PromptTokens:     1000,
		OutputTokens:     500,
		EstimatedCost:    0.00875,
		ProcessingTimeMs: 1200,
	})
	if err := res.Err(); err != nil {
		t.Fatalf("LogSuccess: %v", err)
	}
	_ = svc.Close()

	out, err := runCLI(t, "--config", configPath, "usage", "logs")
	if err != nil {
		t.Fatalf("usage logs: %v", err)
	}
	if !strings.Contains(out, "SUCCESS") || !strings.Contains(out, "files=2") {
		t.Errorf("usage logs output:\n%s", out)
	}

	out, err = runCLI(t, "--config", configPath, "usage", "summary")
	if err != nil {
		t.Fatalf("usage summary: %v", err)
	}
	if !strings.Contains(out, "1 (1 ok") {
		t.Errorf("usage summary output:\n%s", out)
	}

	out, err = runCLI(t, "--config", configPath, "usage", "export", "--format", "json")
	if err != nil {
		t.Fatalf("usage export: %v", err)
	}
	if got := gjson.Get(out, "summary.totalRequests").Int(); got != 1 {
		t.Errorf("exported totalRequests = %d, want 1\n%s", got, out)
	}

	if _, err := runCLI(t, "--config", configPath, "usage", "clear"); err == nil {
		t.Error("clear without --yes should fail")
	}
	out, err = runCLI(t, "--config", configPath, "usage", "clear", "--yes")
	if err != nil {
		t.Fatalf("usage clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 entries") {
		t.Errorf("usage clear output: %q", out)
	}

	out, err = runCLI(t, "--config", configPath, "usage", "today")
	if err != nil {
		t.Fatalf("usage today: %v", err)
	}
	if !strings.Contains(out, "No entries.") {
		t.Errorf("usage today after clear: %q", out)
	}
}

func TestRecognizeCommand_RequiresFiles(t *testing.T) {
	if _, err := runCLI(t, "recognize"); err == nil {
		t.Fatal("recognize without files should fail")
	}
}
