// Package config holds the daemon-level YAML configuration: where the
// module directory lives, how verbose logging is, and settings for the
// optional diagnostics and deny-reporting subsystems. Module-level filter
// configuration (zynx-configs.toml) is a separate, per-module concern
// handled by internal/scanner.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	ModulesRoot string           `yaml:"modules_root"`
	LogLevel    string           `yaml:"log_level"`
	DecideSock  string           `yaml:"decide_sock"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Reporter    ReporterConfig   `yaml:"reporter"`
}

// DiagnosticsConfig controls the MCP introspection server.
type DiagnosticsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Transport string `yaml:"transport"` // "stdio" is the only supported value today
}

// ReporterConfig controls the async deny-webhook reporter.
type ReporterConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DefaultConfig returns the configuration used when a key is absent from
// the loaded file.
func DefaultConfig() Config {
	return Config{
		ModulesRoot: "/data/adb/modules",
		LogLevel:    "info",
		DecideSock:  "/dev/socket/zynxd",
		Diagnostics: DiagnosticsConfig{
			Enabled:   true,
			Transport: "stdio",
		},
		Reporter: ReporterConfig{
			Enabled: false,
		},
	}
}

// LoadConfig reads a YAML file and overlays it onto DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.ModulesRoot == "" {
		return cfg, fmt.Errorf("modules_root must not be empty")
	}
	if cfg.Reporter.Enabled && cfg.Reporter.WebhookURL == "" {
		return cfg, fmt.Errorf("reporter.enabled requires reporter.webhook_url")
	}

	return cfg, nil
}

// String renders a debug-friendly summary of the config.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{ModulesRoot: %s, LogLevel: %s, Diagnostics.Enabled: %v, Reporter.Enabled: %v}",
		c.ModulesRoot, c.LogLevel, c.Diagnostics.Enabled, c.Reporter.Enabled,
	)
}
