// Package util provides small helpers shared by the CLI and server: log level
// wiring and XDG-aware path resolution.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nghyane/inkledger/internal/config"
	"github.com/nghyane/inkledger/internal/logging"
)

// SetLogLevel applies cfg.Debug to the process logger.
func SetLogLevel(cfg *config.Config) {
	logging.SetDebug(cfg.Debug)
}

// xdgDirs maps each supported XDG variable to its fallback under $HOME.
var xdgDirs = []struct {
	name     string
	fallback []string
}{
	{"$XDG_CONFIG_HOME", []string{".config"}},
	{"$XDG_DATA_HOME", []string{".local", "share"}},
	{"$XDG_STATE_HOME", []string{".local", "state"}},
}

// ResolvePath normalizes a user-supplied path for consistent reuse throughout the app.
// It handles:
//   - "$XDG_CONFIG_HOME/...", "$XDG_DATA_HOME/...", "$XDG_STATE_HOME/..." with XDG fallbacks
//   - "~..." -> expands to user's home directory
//   - Returns a cleaned path
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	for _, d := range xdgDirs {
		if !strings.HasPrefix(path, d.name) {
			continue
		}
		base := os.Getenv(strings.TrimPrefix(d.name, "$"))
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve path: %w", err)
			}
			base = filepath.Join(append([]string{home}, d.fallback...)...)
		}
		return joinRemainder(base, strings.TrimPrefix(path, d.name)), nil
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve path: %w", err)
		}
		return joinRemainder(home, strings.TrimPrefix(path, "~")), nil
	}
	return filepath.Clean(path), nil
}

func joinRemainder(base, remainder string) string {
	remainder = strings.TrimLeft(remainder, "/\\")
	if remainder == "" {
		return filepath.Clean(base)
	}
	normalized := strings.ReplaceAll(remainder, "\\", "/")
	return filepath.Clean(filepath.Join(base, filepath.FromSlash(normalized)))
}

// DefaultLogDir is used when logging-to-file is on and log-dir is unset.
func DefaultLogDir() string {
	dir, err := ResolvePath("$XDG_STATE_HOME/inkledger/logs")
	if err != nil {
		return "logs"
	}
	return dir
}

// WritablePath returns the cleaned WRITABLE_PATH environment variable when it is set.
// It accepts both uppercase and lowercase variants for compatibility with container conventions.
func WritablePath() string {
	for _, key := range []string{"WRITABLE_PATH", "writable_path"} {
		if value, ok := os.LookupEnv(key); ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return filepath.Clean(trimmed)
			}
		}
	}
	return ""
}
