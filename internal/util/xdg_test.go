package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestResolvePath_XDG(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	tests := []struct {
		name       string
		env        map[string]string
		input      string
		wantPrefix string
	}{
		{
			name:       "XDG_CONFIG_HOME set",
			env:        map[string]string{"XDG_CONFIG_HOME": "/custom/config"},
			input:      "$XDG_CONFIG_HOME/inkledger/config.yaml",
			wantPrefix: filepath.Clean("/custom/config/inkledger"),
		},
		{
			name:       "XDG_CONFIG_HOME empty falls back to ~/.config",
			env:        map[string]string{"XDG_CONFIG_HOME": ""},
			input:      "$XDG_CONFIG_HOME/inkledger/config.yaml",
			wantPrefix: filepath.Join(home, ".config", "inkledger"),
		},
		{
			name:       "XDG_DATA_HOME set",
			env:        map[string]string{"XDG_DATA_HOME": "/srv/data"},
			input:      "$XDG_DATA_HOME/inkledger/store",
			wantPrefix: filepath.Clean("/srv/data/inkledger/store"),
		},
		{
			name:       "XDG_DATA_HOME empty falls back to ~/.local/share",
			env:        map[string]string{"XDG_DATA_HOME": ""},
			input:      "$XDG_DATA_HOME/inkledger/store",
			wantPrefix: filepath.Join(home, ".local", "share", "inkledger"),
		},
		{
			name:       "XDG_STATE_HOME empty falls back to ~/.local/state",
			env:        map[string]string{"XDG_STATE_HOME": ""},
			input:      "$XDG_STATE_HOME/inkledger/logs",
			wantPrefix: filepath.Join(home, ".local", "state", "inkledger"),
		},
		{
			name:       "tilde path",
			input:      "~/.config/inkledger",
			wantPrefix: home,
		},
		{
			name:       "absolute path unchanged",
			input:      "/absolute/path/to/store",
			wantPrefix: filepath.Clean("/absolute"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := ResolvePath(tt.input)
			if err != nil {
				t.Fatalf("ResolvePath(%q) error = %v", tt.input, err)
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("ResolvePath(%q) = %q, want prefix %q", tt.input, got, tt.wantPrefix)
			}
		})
	}
}

func TestResolvePath_PathSeparators(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		name  string
		input string
	}{
		{"forward slashes", "$XDG_CONFIG_HOME/inkledger/store"},
		{"backslashes", "$XDG_CONFIG_HOME\\inkledger\\store"},
		{"mixed slashes", "$XDG_CONFIG_HOME/inkledger\\store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.input)
			if err != nil {
				t.Fatalf("ResolvePath(%q) error = %v", tt.input, err)
			}

			if runtime.GOOS == "windows" {
				if strings.Contains(got, "/") {
					t.Errorf("ResolvePath(%q) = %q, contains forward slashes on Windows", tt.input, got)
				}
			} else if strings.Contains(got, "\\") {
				t.Errorf("ResolvePath(%q) = %q, contains backslashes on Unix", tt.input, got)
			}

			if !strings.HasSuffix(got, filepath.Join("inkledger", "store")) {
				t.Errorf("ResolvePath(%q) = %q, want suffix inkledger/store", tt.input, got)
			}
		})
	}
}

func TestResolvePath_EmptyInput(t *testing.T) {
	got, err := ResolvePath("")
	if err != nil {
		t.Fatalf("ResolvePath(\"\") error = %v", err)
	}
	if got != "" {
		t.Errorf("ResolvePath(\"\") = %q, want empty string", got)
	}
}

func TestResolvePath_XDGWithTrailingSlash(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config/")

	got, err := ResolvePath("$XDG_CONFIG_HOME/inkledger/config.yaml")
	if err != nil {
		t.Fatalf("ResolvePath error = %v", err)
	}
	if strings.Contains(got, "//") {
		t.Errorf("ResolvePath result %q contains double slashes", got)
	}
	expected := filepath.Clean("/custom/config/inkledger/config.yaml")
	if got != expected {
		t.Errorf("ResolvePath = %q, want %q", got, expected)
	}
}

func TestResolvePath_TildeOnly(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	got, err := ResolvePath("~")
	if err != nil {
		t.Fatalf("ResolvePath(\"~\") error = %v", err)
	}
	if got != filepath.Clean(home) {
		t.Errorf("ResolvePath(\"~\") = %q, want %q", got, filepath.Clean(home))
	}
}

func TestResolvePath_RelativePath(t *testing.T) {
	got, err := ResolvePath("relative/path/store")
	if err != nil {
		t.Fatalf("ResolvePath error = %v", err)
	}
	if expected := filepath.Clean("relative/path/store"); got != expected {
		t.Errorf("ResolvePath = %q, want %q", got, expected)
	}
}

func TestDefaultLogDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")

	if got, want := DefaultLogDir(), filepath.Clean("/state/inkledger/logs"); got != want {
		t.Errorf("DefaultLogDir() = %q, want %q", got, want)
	}
}

func TestWritablePath(t *testing.T) {
	t.Setenv("WRITABLE_PATH", "  /writable/dir/ ")
	if got := WritablePath(); got != filepath.Clean("/writable/dir") {
		t.Errorf("WritablePath() = %q", got)
	}
}
