package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
hass:
  url: "ws://ha.test:8123/api/websocket"
  token: "llat-test-token"
  config_dir: "/config"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
reports:
  dir: "/config/helper_analysis"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hass.URL != "ws://ha.test:8123/api/websocket" {
		t.Errorf("Hass.URL = %q, want %q", cfg.Hass.URL, "ws://ha.test:8123/api/websocket")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Reports.Dir != "/config/helper_analysis" {
		t.Errorf("Reports.Dir = %q, want %q", cfg.Reports.Dir, "/config/helper_analysis")
	}
	// Defaults survive partial files.
	if cfg.Analysis.Naming.MinTokenLength != 4 {
		t.Errorf("Naming.MinTokenLength = %d, want 4", cfg.Analysis.Naming.MinTokenLength)
	}
	if !cfg.Analysis.Naming.Enabled {
		t.Error("Naming.Enabled = false, want true by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// Missing token must fail validation.
	content := `
hass:
  url: "ws://ha.test:8123/api/websocket"
  config_dir: "/config"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for missing token, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
hass:
  url: "ws://ha.test:8123/api/websocket"
  token: "file-token"
  config_dir: "/config"
`
	t.Setenv("HELPERAUDIT_HASS_TOKEN", "env-token")
	t.Setenv("HELPERAUDIT_DATABASE_PATH", "/tmp/env.db")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hass.Token != "env-token" {
		t.Errorf("Hass.Token = %q, want env override %q", cfg.Hass.Token, "env-token")
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override %q", cfg.Database.Path, "/tmp/env.db")
	}
}

func TestStorageDir_Default(t *testing.T) {
	cfg := defaultConfig()
	cfg.Hass.ConfigDir = "/config"

	if got := cfg.StorageDir(); got != "/config/.storage" {
		t.Errorf("StorageDir() = %q, want %q", got, "/config/.storage")
	}

	cfg.Hass.StorageDir = "/elsewhere/.storage"
	if got := cfg.StorageDir(); got != "/elsewhere/.storage" {
		t.Errorf("StorageDir() = %q, want explicit %q", got, "/elsewhere/.storage")
	}
}

func TestValidate_QoSRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Hass.Token = "t"
	cfg.MQTT.QoS = 3

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for qos=3, got nil")
	}
}
