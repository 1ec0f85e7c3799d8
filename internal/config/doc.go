// Package config provides configuration management for svcore.
//
// Configuration is loaded from YAML files and merged in order, with later
// sources overriding earlier ones:
//
//  1. Default Configuration (embedded in binary)
//  2. User Configuration (~/.config/svcore/config.yaml)
//  3. Project Configuration (./.svcore/config.yaml)
//  4. Explicit file passed with --config
//
// SVCORE_ENVIRONMENT, when set, overrides the environment name. The merged
// result is validated before use.
//
// # Configuration Structure
//
//	environment: staging
//	initialization:
//	  packageTimeout: 30s
//	  maxConcurrency: 4
//	  detectCycles: true
//	transport:
//	  baseURL: https://api.example.com
//	  timeout: 10s
//	  requestsPerSecond: 10
//	  burst: 5
//	identifiers:
//	  path: /var/lib/svcore/identifiers.yaml
//	packages:
//	  disabled: [relay]
//	logging:
//	  level: debug
//	  format: json
//
// Scalar values replace those of earlier layers. Disabled package lists
// accumulate.
package config
