package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nghyane/inkledger/internal/json"
	"github.com/tidwall/gjson"
)

const (
	CredentialsFileName = "credentials.json"
	ManagementKeyLength = 16 // 32-char hex string
	CredentialsVersion  = 1
)

// ManagementKeyEnv overrides the management key stored on disk.
const ManagementKeyEnv = "INKLEDGER_MANAGEMENT_KEY"

type Credentials struct {
	ManagementKey string    `json:"management-key"`
	CreatedAt     time.Time `json:"created-at"`
	Version       int       `json:"version"`
}

var (
	cache   *Credentials
	cacheMu sync.RWMutex
)

// ConfigDir returns $XDG_CONFIG_HOME/inkledger, falling back to ~/.config/inkledger.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "inkledger")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "inkledger")
	}
	return ""
}

// DefaultConfigPath is where `inkledger init` writes the config file.
func DefaultConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return "config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

// CredentialsFilePath returns the credentials file path inside ConfigDir.
func CredentialsFilePath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, CredentialsFileName)
}

func GenerateManagementKey() (string, error) {
	b := make([]byte, ManagementKeyLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// LoadCredentials loads credentials with priority: ENV > cache > file.
// A missing file yields (nil, nil).
func LoadCredentials() (*Credentials, error) {
	if key := strings.TrimSpace(os.Getenv(ManagementKeyEnv)); key != "" {
		return &Credentials{ManagementKey: key, CreatedAt: time.Now(), Version: CredentialsVersion}, nil
	}

	cacheMu.RLock()
	if cache != nil {
		c := *cache
		cacheMu.RUnlock()
		return &c, nil
	}
	cacheMu.RUnlock()

	path := CredentialsFilePath()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("credentials file %s is not valid JSON", path)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	if creds.ManagementKey == "" {
		return nil, nil
	}

	cacheMu.Lock()
	cache = &creds
	cacheMu.Unlock()

	return &creds, nil
}

func SaveCredentials(creds *Credentials) error {
	path := CredentialsFilePath()
	if path == "" {
		return fmt.Errorf("cannot determine credentials path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	if creds.Version == 0 {
		creds.Version = CredentialsVersion
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}

	cacheMu.Lock()
	cache = creds
	cacheMu.Unlock()

	return nil
}

func CreateCredentials() (string, error) {
	key, err := GenerateManagementKey()
	if err != nil {
		return "", err
	}
	creds := &Credentials{ManagementKey: key, CreatedAt: time.Now(), Version: CredentialsVersion}
	if err := SaveCredentials(creds); err != nil {
		return "", err
	}
	return key, nil
}

func GetManagementKey() string {
	creds, _ := LoadCredentials()
	if creds == nil {
		return ""
	}
	return creds.ManagementKey
}

func HasManagementKey() bool {
	return GetManagementKey() != ""
}

func InvalidateCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}
