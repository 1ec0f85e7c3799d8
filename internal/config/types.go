package config

import (
	"time"
)

// SvcoreConfig is the top-level configuration structure for svcore.
type SvcoreConfig struct {
	// Environment names the backend environment packages initialize against,
	// e.g. "production" or "staging".
	Environment    string               `yaml:"environment" validate:"required,hostname_rfc1123"`
	Initialization InitializationConfig `yaml:"initialization"`
	Transport      TransportConfig      `yaml:"transport"`
	Identifiers    IdentifiersConfig    `yaml:"identifiers"`
	Packages       PackagesConfig       `yaml:"packages"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// InitializationConfig controls the orchestration run.
type InitializationConfig struct {
	PackageTimeout time.Duration `yaml:"packageTimeout,omitempty" validate:"gte=0"` // Per-package Init deadline, 0 disables
	MaxConcurrency int           `yaml:"maxConcurrency,omitempty" validate:"gte=0"` // Concurrent Init routines, 0 is unbounded
	DetectCycles   *bool         `yaml:"detectCycles,omitempty"`                    // Static cycle check over declared providers (default: true)
}

// CycleDetection reports whether the static cycle check is enabled.
func (c InitializationConfig) CycleDetection() bool {
	return c.DetectCycles == nil || *c.DetectCycles
}

// TransportConfig defines how bundled packages reach the backend.
type TransportConfig struct {
	BaseURL           string        `yaml:"baseURL,omitempty" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout,omitempty" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond,omitempty" validate:"gt=0"`
	Burst             int           `yaml:"burst,omitempty" validate:"gt=0"`
}

// IdentifiersConfig locates the persistent identifier store.
type IdentifiersConfig struct {
	Path string `yaml:"path,omitempty"` // Defaults to identifiers.yaml in the user config directory
}

// PackagesConfig selects which bundled packages are registered.
type PackagesConfig struct {
	Disabled []string `yaml:"disabled,omitempty" validate:"dive,required"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
}
