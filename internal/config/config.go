// Package config loads the tool configuration from an optional YAML file,
// applies defaults, and finally applies environment overrides. Precedence
// is flag > environment > file > default; flags are handled by the CLI
// layer on top of the value returned here.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config is the full tool configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Timezone is the target zone for timestamp normalization (IANA name).
	Timezone string `yaml:"timezone"`

	// DetectionSampleSize is how many non-empty lines the detector inspects.
	DetectionSampleSize int `yaml:"detection_sample_size"`

	// ProgressInterval is how many lines pass between progress callbacks.
	ProgressInterval int `yaml:"progress_interval"`

	// FieldMappings are custom structured-data key rewrites merged over the
	// built-in canonical mapping.
	FieldMappings map[string]string `yaml:"field_mappings"`

	// GeoDatabasePath points at a MaxMind database file; empty disables the
	// geo enrichment step.
	GeoDatabasePath string `yaml:"geo_database_path"`
}

// Load reads the configuration. A missing configFile is only an error when
// the caller named one explicitly.
func Load(configFile string) (*Config, error) {
	config := &Config{}

	if configFile != "" {
		if err := loadConfigFile(configFile, config); err != nil {
			return nil, err
		}
	}

	applyDefaults(config)
	applyEnvironmentOverrides(config)
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.LogLevel == "" {
		config.LogLevel = "warning"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}
	if config.DetectionSampleSize == 0 {
		config.DetectionSampleSize = 50
	}
	if config.ProgressInterval == 0 {
		config.ProgressInterval = 10000
	}
}

func applyEnvironmentOverrides(config *Config) {
	if level := getEnvString("UNILOG_LOG_LEVEL", ""); level != "" {
		config.LogLevel = level
	}
	if format := getEnvString("UNILOG_LOG_FORMAT", ""); format != "" {
		config.LogFormat = format
	}
	if tz := getEnvString("UNILOG_TIMEZONE", ""); tz != "" {
		config.Timezone = tz
	}
	if sample := getEnvInt("UNILOG_DETECTION_SAMPLE_SIZE", 0); sample > 0 {
		config.DetectionSampleSize = sample
	}
	if interval := getEnvInt("UNILOG_PROGRESS_INTERVAL", 0); interval > 0 {
		config.ProgressInterval = interval
	}
	if path := getEnvString("UNILOG_GEO_DATABASE", ""); path != "" {
		config.GeoDatabasePath = path
	}
}

func getEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
