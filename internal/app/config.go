package app

import (
	"svcore/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Configuration file given with --config, layered on top of the
	// user and project files
	ConfigPath string

	// Logging overrides from the command line
	LogLevel  string
	LogFormat string

	// Address for the Prometheus endpoint, empty disables it
	MetricsAddr string

	// Loaded configuration. NewApplication loads it when nil.
	SvcoreConfig *config.SvcoreConfig
}

// NewConfig creates a new application configuration
func NewConfig(configPath, logLevel, logFormat string) *Config {
	return &Config{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
	}
}
