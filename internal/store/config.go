package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultDebounce = 200 * time.Millisecond
	DefaultNavLock  = 800 * time.Millisecond
)

type GlobalConfig struct {
	// APIURL is the backend root, e.g. https://erp.example.com/api.
	APIURL         string `json:"apiUrl,omitempty" validate:"omitempty,url"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" validate:"gte=0"`
	// CAPath is a PEM file with the only CAs to trust for the API.
	CAPath   string `json:"caPath,omitempty"`
	LogLevel string `json:"logLevel,omitempty" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	// LogFile receives logs while the TUI owns the terminal.
	LogFile        string `json:"logFile,omitempty"`
	DebounceMillis int    `json:"debounceMillis,omitempty" validate:"gte=0"`
	NavLockMillis  int    `json:"navLockMillis,omitempty" validate:"gte=0"`

	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Profile is the appearance profile id (e.g. "default", "contrast").
	Profile string `json:"profile,omitempty"`
}

func (c *GlobalConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *GlobalConfig) Debounce() time.Duration {
	if c == nil || c.DebounceMillis <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

func (c *GlobalConfig) NavLock() time.Duration {
	if c == nil || c.NavLockMillis <= 0 {
		return DefaultNavLock
	}
	return time.Duration(c.NavLockMillis) * time.Millisecond
}

func (c *GlobalConfig) Profile() string {
	if c == nil || c.TUI == nil {
		return ""
	}
	return strings.TrimSpace(c.TUI.Profile)
}

var configValidate = validator.New()

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.oversee).
	if v := strings.TrimSpace(os.Getenv("OVERSEE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".oversee"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &cfg, nil
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

func SaveConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return nil
	}
	if err := configValidate.Struct(cfg); err != nil {
		return err
	}
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
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
