package config

import (
	"time"
)

const (
	DefaultEnvironment       = "production"
	DefaultBaseURL           = "https://api.svcore.dev"
	DefaultPackageTimeout    = 30 * time.Second
	DefaultTransportTimeout  = 10 * time.Second
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
)

// GetDefaultConfig returns the built-in configuration every layer is merged onto.
func GetDefaultConfig() SvcoreConfig {
	return SvcoreConfig{
		Environment: DefaultEnvironment,
		Initialization: InitializationConfig{
			PackageTimeout: DefaultPackageTimeout,
		},
		Transport: TransportConfig{
			BaseURL:           DefaultBaseURL,
			Timeout:           DefaultTransportTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Packages: PackagesConfig{
			Disabled: []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
