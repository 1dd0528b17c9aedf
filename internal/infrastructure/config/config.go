package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Helper Audit.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hass     HassConfig     `yaml:"hass"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Reports  ReportsConfig  `yaml:"reports"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HassConfig contains Home Assistant connection settings.
type HassConfig struct {
	// URL is the Home Assistant base URL, e.g.
	// "http://homeassistant.local:8123". A full WebSocket endpoint
	// ("ws://.../api/websocket") is accepted too.
	URL string `yaml:"url"`

	// Token is a long-lived access token. Set it via HELPERAUDIT_HASS_TOKEN
	// in production rather than committing it to the config file.
	Token string `yaml:"token"`

	// ConfigDir is the Home Assistant configuration root (automations,
	// scripts, packages, blueprints). Mounted read-only when containerised.
	ConfigDir string `yaml:"config_dir"`

	// StorageDir is the .storage directory holding UI-managed dashboards.
	// Defaults to <config_dir>/.storage when empty.
	StorageDir string `yaml:"storage_dir"`

	// CallTimeout bounds each WebSocket round trip (seconds).
	CallTimeout int `yaml:"call_timeout"`
}

// AnalysisConfig contains classification engine settings.
type AnalysisConfig struct {
	Naming NamingConfig `yaml:"naming"`
}

// NamingConfig tunes the naming-pattern inference heuristic.
// The token-overlap rules are an approximation, not a contract, so every
// knob is exposed here.
type NamingConfig struct {
	// Enabled toggles the inference pass entirely.
	Enabled bool `yaml:"enabled"`

	// MinTokenLength ignores shared tokens shorter than this many runes.
	MinTokenLength int `yaml:"min_token_length"`

	// StopTokens are never counted as overlap, regardless of length.
	StopTokens []string `yaml:"stop_tokens"`
}

// ReportsConfig contains report output settings.
type ReportsConfig struct {
	// Dir is where report artefacts are written
	// (JSON document, summary, orphan list, review card).
	Dir string `yaml:"dir"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains settings for publishing the audit status sensor.
// Publishing is optional; when disabled no broker connection is made.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`

	// DiscoveryPrefix is the Home Assistant MQTT discovery prefix.
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains optional run-metric settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings for `helperaudit serve`.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HELPERAUDIT_SECTION_KEY
// For example: HELPERAUDIT_HASS_TOKEN, HELPERAUDIT_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hass: HassConfig{
			URL:         "ws://homeassistant.local:8123/api/websocket",
			ConfigDir:   "/config",
			CallTimeout: 10,
		},
		Analysis: AnalysisConfig{
			Naming: NamingConfig{
				Enabled:        true,
				MinTokenLength: 4,
				StopTokens: []string{
					"the", "and", "mode", "state", "status", "sensor", "helper",
				},
			},
		},
		Reports: ReportsConfig{
			Dir: "./helper_analysis",
		},
		Database: DatabaseConfig{
			Path:        "./data/helperaudit.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "helperaudit",
			},
			QoS:             1,
			DiscoveryPrefix: "homeassistant",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8094,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HELPERAUDIT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Home Assistant
	if v := os.Getenv("HELPERAUDIT_HASS_URL"); v != "" {
		cfg.Hass.URL = v
	}
	if v := os.Getenv("HELPERAUDIT_HASS_TOKEN"); v != "" {
		cfg.Hass.Token = v
	}
	if v := os.Getenv("HELPERAUDIT_HASS_CONFIG_DIR"); v != "" {
		cfg.Hass.ConfigDir = v
	}

	// Database
	if v := os.Getenv("HELPERAUDIT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Reports
	if v := os.Getenv("HELPERAUDIT_REPORTS_DIR"); v != "" {
		cfg.Reports.Dir = v
	}

	// MQTT
	if v := os.Getenv("HELPERAUDIT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HELPERAUDIT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HELPERAUDIT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HELPERAUDIT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Hass.URL == "" {
		errs = append(errs, "hass.url is required")
	}
	if c.Hass.Token == "" {
		errs = append(errs, "hass.token is required (set HELPERAUDIT_HASS_TOKEN environment variable)")
	}
	if c.Hass.ConfigDir == "" {
		errs = append(errs, "hass.config_dir is required")
	}
	if c.Hass.CallTimeout <= 0 {
		errs = append(errs, "hass.call_timeout must be positive")
	}

	if c.Analysis.Naming.MinTokenLength < 1 {
		errs = append(errs, "analysis.naming.min_token_length must be at least 1")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StorageDir returns the dashboard storage directory, defaulting to
// <config_dir>/.storage when unset.
func (c *Config) StorageDir() string {
	if c.Hass.StorageDir != "" {
		return c.Hass.StorageDir
	}
	return filepath.Join(c.Hass.ConfigDir, ".storage")
}

// GetCallTimeout returns the Home Assistant call timeout as a Duration.
func (c *Config) GetCallTimeout() time.Duration {
	return time.Duration(c.Hass.CallTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
