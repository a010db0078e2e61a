package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:8000"
	DefaultTimeoutSeconds = 30
)

type Config struct {
	// APIURL is the backend base URL. Empty means DefaultAPIURL.
	APIURL string `json:"apiUrl,omitempty"`

	// TimeoutSeconds bounds every HTTP request. Zero means DefaultTimeoutSeconds.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`

	// LogPath is a file the debug log is appended to. Empty disables logging.
	LogPath string `json:"logPath,omitempty"`
	// LogLevel is one of debug|info|warn|error.
	LogLevel string `json:"logLevel,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Theme is light|dark|auto. It also picks the glamour style.
	Theme string `json:"theme,omitempty"`
}

func (c *Config) EffectiveAPIURL() string {
	if c == nil || strings.TrimSpace(c.APIURL) == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
}

func (c *Config) Timeout() time.Duration {
	if c == nil || c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) Theme() string {
	if c == nil || c.TUI == nil {
		return "auto"
	}
	switch t := strings.ToLower(strings.TrimSpace(c.TUI.Theme)); t {
	case "light", "dark":
		return t
	default:
		return "auto"
	}
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.issuehub).
	if v := strings.TrimSpace(os.Getenv("ISSUEHUB_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".issuehub"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func SaveConfig(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Unique temp name + rename so a CLI and a TUI writing at once never tear the file.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
