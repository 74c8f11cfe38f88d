package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("OVERSEE_CONFIG_DIR", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Timeout() != 10*time.Second || cfg.Debounce() != 200*time.Millisecond || cfg.NavLock() != 800*time.Millisecond {
		t.Fatalf("unexpected defaults: %v %v %v", cfg.Timeout(), cfg.Debounce(), cfg.NavLock())
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OVERSEE_CONFIG_DIR", dir)

	in := &GlobalConfig{
		APIURL:         "https://erp.example.com/api",
		TimeoutSeconds: 30,
		LogLevel:       "debug",
		DebounceMillis: 300,
		TUI:            &TUIConfig{Profile: "contrast"},
	}
	if err := SaveConfig(in); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 config; got %v", info.Mode().Perm())
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.APIURL != in.APIURL || got.Timeout() != 30*time.Second || got.Debounce() != 300*time.Millisecond || got.Profile() != "contrast" {
		t.Fatalf("unexpected config: %#v", got)
	}
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OVERSEE_CONFIG_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"apiUrl":"not a url","logLevel":"loud"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected validation error; got %v", err)
	}
}
