// Package config loads, defaults, and validates the DriveVault server
// configuration, and provides factories building the configured stores.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	httpadapter "github.com/drivevault/drivevault/pkg/adapter/http"
	"github.com/drivevault/drivevault/pkg/gc"
)

// Config represents the complete DriveVault configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DRIVEVAULT_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// the Blob and Catalog sections carry a Type selector plus one map per
// implementation; only the map matching the selected type is decoded,
// by the factory of that implementation.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings.
	Server ServerConfig `mapstructure:"server"`

	// HTTP configures the API listener.
	HTTP httpadapter.Config `mapstructure:"http"`

	// Blob specifies the blob store type and type-specific configuration.
	Blob BlobConfig `mapstructure:"blob"`

	// Catalog specifies the metadata catalog configuration.
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Drive contains upload policy and quota settings.
	Drive DriveConfig `mapstructure:"drive"`

	// GC configures the blob garbage collector.
	GC gc.Config `mapstructure:"gc"`

	// Metrics controls the Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// BlobConfig specifies blob store configuration.
type BlobConfig struct {
	// Type selects the blob store implementation.
	// Valid values: filesystem, memory, s3.
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem options, used when Type = "filesystem".
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory options, used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`

	// S3 options, used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// CatalogConfig specifies metadata catalog configuration.
type CatalogConfig struct {
	// Type selects the catalog implementation. Valid values: badger.
	Type string `mapstructure:"type" validate:"required,oneof=badger"`

	// Badger options, used when Type = "badger".
	Badger map[string]any `mapstructure:"badger"`
}

// DriveConfig contains upload policy and quota settings.
type DriveConfig struct {
	// MaxUploadBytes rejects larger payloads. 0 means no ceiling.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gte=0"`

	// QuotaBytes is the per-user storage ceiling. 0 means unlimited.
	QuotaBytes int64 `mapstructure:"quota_bytes" validate:"gte=0"`

	// BlockedExtensions lists rejected file-type suffixes, with or
	// without the leading dot.
	BlockedExtensions []string `mapstructure:"blocked_extensions"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on the write-once registry and the /metrics route.
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses the default
//     location; a missing file is fine, defaults apply)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
// Environment variables use the DRIVEVAULT_ prefix with underscores, e.g.
// DRIVEVAULT_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DRIVEVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME or
// ~/.config, falling back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "drivevault")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "drivevault")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
