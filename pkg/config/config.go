package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lockbookapp/lockbook-core/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents a lockbook-server or lockbook-cli process's static
// configuration.
//
// This structure captures everything that is the same across every account
// the process serves or drives: logging, tracing, metrics, and (for the
// server) which store/docstore backend to construct and how much document
// storage each account is allowed. Per-account state (trees, document
// bodies, sync watermark) lives in pkg/clientdb or pkg/server/store
// instead, never here.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (LOCKBOOK_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Server configures lockbook-server's listen address, per-account usage
	// cap, and backend selection. Unused by lockbook-cli.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Client configures lockbook-cli's local state directory and the
	// server it talks to by default. Unused by lockbook-server.
	Client ClientConfig `mapstructure:"client" yaml:"client"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing. When enabled,
// trace data is exported to an OTLP-compatible collector (e.g. Jaeger,
// Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	// Default: false (opt-in for telemetry).
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	// Default: "localhost:4317" (standard OTLP gRPC port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection.
	// The generated sample config sets it to true; ApplyDefaults leaves it
	// unchanged, so it is false when unset.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. When
// Enabled is false, metrics.InitRegistry is never called and every
// metrics.NewXMetrics constructor returns nil (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	// Default: 9090.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ServerConfig configures lockbook-server.
type ServerConfig struct {
	// ListenAddr is the address pkg/server/api's chi router binds to.
	// Default: ":8080".
	ListenAddr string `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`

	// UsageCap is the per-account document-byte cap the validator enforces
	// (§4.7 usage check). Supports human-readable sizes like "5GB", "500Mi".
	// Default: 5GB.
	UsageCap bytesize.ByteSize `mapstructure:"usage_cap" yaml:"usage_cap"`

	// JWTSecret signs the admin session tokens pkg/server/api's AdminAuth
	// issues. When it is empty, lockbook-server starts with the admin
	// operator surface disabled.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`

	// Store selects the authoritative metadata store backend (pkg/server/store).
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// DocStore selects the content-addressed document body backend (pkg/docstore).
	DocStore DocStoreConfig `mapstructure:"docstore" yaml:"docstore"`
}

// StoreConfig selects and configures a pkg/server/store backend.
type StoreConfig struct {
	// Type selects the backend. Valid values: "memory", "badger".
	// Default: "memory".
	Type string `mapstructure:"type" validate:"required,oneof=memory badger" yaml:"type"`

	// Badger configures the badger backend. Only used when Type == "badger".
	Badger BadgerStoreConfig `mapstructure:"badger" yaml:"badger"`
}

// BadgerStoreConfig mirrors pkg/server/store/badger.Config.
type BadgerStoreConfig struct {
	// Path is the directory badger persists its log-structured merge tree to.
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory runs badger with no on-disk files (tests, ephemeral servers).
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// SyncWrites fsyncs every write; slower, durable across a power loss.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`
}

// DocStoreConfig selects and configures a pkg/docstore backend.
type DocStoreConfig struct {
	// Type selects the backend. Valid values: "memory", "fs", "s3".
	// Default: "memory".
	Type string `mapstructure:"type" validate:"required,oneof=memory fs s3" yaml:"type"`

	// FS configures the fsstore backend. Only used when Type == "fs".
	FS FSDocStoreConfig `mapstructure:"fs" yaml:"fs"`

	// S3 configures the s3store backend. Only used when Type == "s3".
	S3 S3DocStoreConfig `mapstructure:"s3" yaml:"s3"`
}

// FSDocStoreConfig mirrors pkg/docstore/fsstore's constructor argument.
type FSDocStoreConfig struct {
	// Dir is the root directory document bodies are written under, laid
	// out as "<root>/<id>/<hex(hmac)>".
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// S3DocStoreConfig mirrors pkg/docstore/s3store.Config.
type S3DocStoreConfig struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	KeyPrefix      string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
}

// ClientConfig configures lockbook-cli.
type ClientConfig struct {
	// DataDir is the directory pkg/clientdb persists the account's trees,
	// document cache, and sync watermark under.
	// Default: "$XDG_DATA_HOME/lockbook" (or "~/.local/share/lockbook").
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// InMemory runs the client database with no on-disk files (tests).
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// ServerURL is the default lockbook-server this CLI talks to, used by
	// pkg/netclient when creating or importing an account.
	ServerURL string `mapstructure:"server_url" validate:"omitempty,url" yaml:"server_url"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LOCKBOOK_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages. It checks if
// the config file exists and provides user-friendly instructions if not.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: User-friendly error with instructions if config not found
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  lockbook-server init\n\n"+
				"Or specify a custom config file:\n"+
				"  lockbook-server <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  lockbook-server init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path, in YAML
// format using the struct's yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Restricted permissions (0600): the config may carry Server.JWTSecret.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate runs struct-tag validation over cfg using go-playground/validator,
// the same validation library the struct tags throughout this package
// already target, plus the handful of cross-field rules a struct tag can't
// express on its own.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	return nil
}

// setupViper configures viper with environment variable and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the LOCKBOOK_ prefix and underscores.
	// Example: LOCKBOOK_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("LOCKBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and
// time.Duration fields.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can use human-readable sizes like "5GB", "500Mi", or
// plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration, so config files
// can use human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "lockbook")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "lockbook")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
