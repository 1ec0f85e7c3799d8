package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"svcore/pkg/logging"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd
var osGetenv = os.Getenv

const (
	userConfigDir    = ".config/svcore"
	projectConfigDir = ".svcore"
	configFileName   = "config.yaml"

	identifiersFileName = "identifiers.yaml"

	// EnvironmentVariable overrides the configured environment name.
	EnvironmentVariable = "SVCORE_ENVIRONMENT"
)

// LoadConfig loads the svcore configuration by layering default, user,
// project and, when explicitPath is set, explicit settings. The result is
// validated before it is returned.
func LoadConfig(explicitPath string) (SvcoreConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User and project layers are optional
	for _, layer := range []struct {
		name    string
		resolve func() (string, error)
	}{
		{"user", getUserConfigPath},
		{"project", getProjectConfigPath},
	} {
		path, err := layer.resolve()
		if err != nil {
			logging.Warn("Config", "Could not determine %s config path: %v", layer.name, err)
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		overlay, err := loadConfigFromFile(path)
		if err != nil {
			return SvcoreConfig{}, fmt.Errorf("error loading %s config from %s: %w", layer.name, path, err)
		}
		logging.Debug("Config", "Merging %s config from %s", layer.name, path)
		config = mergeConfigs(config, overlay)
	}

	// 3. An explicit path must exist
	if explicitPath != "" {
		overlay, err := loadConfigFromFile(explicitPath)
		if err != nil {
			return SvcoreConfig{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
		config = mergeConfigs(config, overlay)
	}

	// 4. Environment overrides
	if env := osGetenv(EnvironmentVariable); env != "" {
		config.Environment = env
	}

	if config.Identifiers.Path == "" {
		dir, err := GetUserConfigDir()
		if err != nil {
			return SvcoreConfig{}, fmt.Errorf("cannot determine identifier store path: %w", err)
		}
		config.Identifiers.Path = filepath.Join(dir, identifiersFileName)
	}

	if err := Validate(config); err != nil {
		return SvcoreConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a SvcoreConfig from a YAML file. Unknown keys are rejected.
func loadConfigFromFile(filePath string) (SvcoreConfig, error) {
	var config SvcoreConfig
	f, err := os.Open(filePath)
	if err != nil {
		return SvcoreConfig{}, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return SvcoreConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
func mergeConfigs(base, overlay SvcoreConfig) SvcoreConfig {
	merged := base

	if overlay.Environment != "" {
		merged.Environment = overlay.Environment
	}

	// Initialization
	if overlay.Initialization.PackageTimeout != 0 {
		merged.Initialization.PackageTimeout = overlay.Initialization.PackageTimeout
	}
	if overlay.Initialization.MaxConcurrency != 0 {
		merged.Initialization.MaxConcurrency = overlay.Initialization.MaxConcurrency
	}
	// Only if explicitly set in overlay
	if overlay.Initialization.DetectCycles != nil {
		detect := *overlay.Initialization.DetectCycles
		merged.Initialization.DetectCycles = &detect
	}

	// Transport
	if overlay.Transport.BaseURL != "" {
		merged.Transport.BaseURL = overlay.Transport.BaseURL
	}
	if overlay.Transport.Timeout != 0 {
		merged.Transport.Timeout = overlay.Transport.Timeout
	}
	if overlay.Transport.RequestsPerSecond != 0 {
		merged.Transport.RequestsPerSecond = overlay.Transport.RequestsPerSecond
	}
	if overlay.Transport.Burst != 0 {
		merged.Transport.Burst = overlay.Transport.Burst
	}

	if overlay.Identifiers.Path != "" {
		merged.Identifiers.Path = overlay.Identifiers.Path
	}

	// Disabled packages accumulate across layers
	seen := make(map[string]bool, len(merged.Packages.Disabled))
	disabled := make([]string, 0, len(merged.Packages.Disabled)+len(overlay.Packages.Disabled))
	for _, id := range append(append([]string{}, merged.Packages.Disabled...), overlay.Packages.Disabled...) {
		if !seen[id] {
			seen[id] = true
			disabled = append(disabled, id)
		}
	}
	merged.Packages.Disabled = disabled

	// Logging
	if overlay.Logging.Level != "" {
		merged.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		merged.Logging.Format = overlay.Logging.Format
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
