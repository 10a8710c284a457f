package config

import (
	"os"
	"strings"
	"time"

	"github.com/lockbookapp/lockbook-core/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero numbers, durations and strings are replaced with defaults;
//     boolean fields are left as they are.
//   - Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyServerDefaults(&cfg.Server)
	applyClientDefaults(&cfg.Client)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	} else {
		cfg.Level = strings.ToUpper(cfg.Level)
	}

	if cfg.Format == "" {
		cfg.Format = "text"
	}

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets telemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyMetricsDefaults sets metrics HTTP server defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyServerDefaults sets lockbook-server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if cfg.UsageCap == 0 {
		cfg.UsageCap = 5 * bytesize.GB
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Type == "badger" && cfg.Store.Badger.Path == "" && !cfg.Store.Badger.InMemory {
		cfg.Store.Badger.Path = "/var/lib/lockbook/store"
	}

	if cfg.DocStore.Type == "" {
		cfg.DocStore.Type = "memory"
	}
	if cfg.DocStore.Type == "fs" && cfg.DocStore.FS.Dir == "" {
		cfg.DocStore.FS.Dir = "/var/lib/lockbook/docs"
	}
	if cfg.DocStore.Type == "s3" && cfg.DocStore.S3.Region == "" {
		cfg.DocStore.S3.Region = "us-east-1"
	}
}

// applyClientDefaults sets lockbook-cli defaults.
func applyClientDefaults(cfg *ClientConfig) {
	if cfg.DataDir == "" && !cfg.InMemory {
		cfg.DataDir = defaultDataDir()
	}
}

// defaultDataDir returns $XDG_DATA_HOME/lockbook, or ~/.local/share/lockbook,
// or "." as a last resort.
func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData + "/lockbook"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return home + "/.local/share/lockbook"
}

// GetDefaultConfig returns a fully-defaulted Config, used when no config
// file is found (Load falls back to this rather than erroring, since a
// fresh lockbook-cli install has no config file yet).
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
