package watcher

import (
	"fmt"
	"strings"

	"github.com/nghyane/inkledger/internal/config"
)

// buildConfigChangeDetails lists config changes for the reload log. Secrets
// and store credentials are never printed.
func buildConfigChangeDetails(oldCfg, newCfg *config.Config) []string {
	changes := make([]string, 0, 16)
	if oldCfg == nil || newCfg == nil {
		return changes
	}

	if oldCfg.Port != newCfg.Port {
		changes = append(changes, fmt.Sprintf("port: %d -> %d (restart required)", oldCfg.Port, newCfg.Port))
	}
	if oldCfg.Debug != newCfg.Debug {
		changes = append(changes, fmt.Sprintf("debug: %t -> %t", oldCfg.Debug, newCfg.Debug))
	}
	if oldCfg.LoggingToFile != newCfg.LoggingToFile {
		changes = append(changes, fmt.Sprintf("logging-to-file: %t -> %t", oldCfg.LoggingToFile, newCfg.LoggingToFile))
	}
	if oldCfg.LogDir != newCfg.LogDir {
		changes = append(changes, fmt.Sprintf("log-dir: %s -> %s", oldCfg.LogDir, newCfg.LogDir))
	}

	oldRec, newRec := oldCfg.Recognition, newCfg.Recognition
	oldKey := strings.TrimSpace(oldRec.APIKey)
	newKey := strings.TrimSpace(newRec.APIKey)
	switch {
	case oldKey == "" && newKey != "":
		changes = append(changes, "recognition.api-key: added")
	case oldKey != "" && newKey == "":
		changes = append(changes, "recognition.api-key: removed")
	case oldKey != newKey:
		changes = append(changes, "recognition.api-key: updated")
	}
	if oldRec.Model != newRec.Model {
		changes = append(changes, fmt.Sprintf("recognition.model: %s -> %s", oldRec.Model, newRec.Model))
	}
	if oldRec.Temperature != newRec.Temperature {
		changes = append(changes, fmt.Sprintf("recognition.temperature: %.2f -> %.2f", oldRec.Temperature, newRec.Temperature))
	}
	if oldRec.Timeout != newRec.Timeout {
		changes = append(changes, fmt.Sprintf("recognition.timeout: %s -> %s", oldRec.Timeout, newRec.Timeout))
	}
	if oldRec.RequestRetry != newRec.RequestRetry {
		changes = append(changes, fmt.Sprintf("recognition.request-retry: %d -> %d", oldRec.RequestRetry, newRec.RequestRetry))
	}
	if oldRec.MaxRetryInterval != newRec.MaxRetryInterval {
		changes = append(changes, fmt.Sprintf("recognition.max-retry-interval: %s -> %s", oldRec.MaxRetryInterval, newRec.MaxRetryInterval))
	}
	if oldRec.Pricing != newRec.Pricing {
		changes = append(changes, fmt.Sprintf("recognition.pricing: $%.2f/$%.2f -> $%.2f/$%.2f per 1M tokens",
			oldRec.Pricing.InputPerMillion, oldRec.Pricing.OutputPerMillion,
			newRec.Pricing.InputPerMillion, newRec.Pricing.OutputPerMillion))
	}

	oldUsage, newUsage := oldCfg.Usage, newCfg.Usage
	if oldUsage.DSN != newUsage.DSN {
		changes = append(changes, fmt.Sprintf("usage.dsn: %s -> %s (restart required)", redactDSN(oldUsage.DSN), redactDSN(newUsage.DSN)))
	}
	if oldUsage.QuotaBytes != newUsage.QuotaBytes {
		changes = append(changes, fmt.Sprintf("usage.quota-bytes: %d -> %d (restart required)", oldUsage.QuotaBytes, newUsage.QuotaBytes))
	}
	if oldUsage.MaxEntries != newUsage.MaxEntries {
		changes = append(changes, fmt.Sprintf("usage.max-entries: %d -> %d", oldUsage.MaxEntries, newUsage.MaxEntries))
	}
	if oldUsage.MaxMirrorLines != newUsage.MaxMirrorLines {
		changes = append(changes, fmt.Sprintf("usage.max-mirror-lines: %d -> %d", oldUsage.MaxMirrorLines, newUsage.MaxMirrorLines))
	}
	if oldUsage.RateLimitWindow != newUsage.RateLimitWindow {
		changes = append(changes, fmt.Sprintf("usage.rate-limit-window: %s -> %s", oldUsage.RateLimitWindow, newUsage.RateLimitWindow))
	}
	if oldUsage.RateLimitThreshold != newUsage.RateLimitThreshold {
		changes = append(changes, fmt.Sprintf("usage.rate-limit-threshold: %d -> %d", oldUsage.RateLimitThreshold, newUsage.RateLimitThreshold))
	}
	oldMarkers := summarizeMarkers(oldUsage.RateLimitMarkers)
	newMarkers := summarizeMarkers(newUsage.RateLimitMarkers)
	if oldMarkers.hash != newMarkers.hash {
		changes = append(changes, fmt.Sprintf("usage.rate-limit-markers: updated (%d -> %d entries)", oldMarkers.count, newMarkers.count))
	}
	if oldUsage.Timezone != newUsage.Timezone {
		changes = append(changes, fmt.Sprintf("usage.timezone: %q -> %q", oldUsage.Timezone, newUsage.Timezone))
	}

	if oldCfg.API.MaxUploadBytes != newCfg.API.MaxUploadBytes {
		changes = append(changes, fmt.Sprintf("api.max-upload-bytes: %d -> %d (restart required)", oldCfg.API.MaxUploadBytes, newCfg.API.MaxUploadBytes))
	}
	if oldCfg.Telemetry.OTLPEndpoint != newCfg.Telemetry.OTLPEndpoint {
		changes = append(changes, fmt.Sprintf("telemetry.otlp-endpoint: %s -> %s (restart required)", oldCfg.Telemetry.OTLPEndpoint, newCfg.Telemetry.OTLPEndpoint))
	}
	if oldCfg.Telemetry.Metrics != newCfg.Telemetry.Metrics {
		changes = append(changes, fmt.Sprintf("telemetry.metrics: %t -> %t (restart required)", oldCfg.Telemetry.Metrics, newCfg.Telemetry.Metrics))
	}

	return changes
}

func redactDSN(dsn string) string {
	parsed, err := config.ParseDSN(dsn)
	if err != nil {
		return "<invalid>"
	}
	return parsed.Redacted()
}
