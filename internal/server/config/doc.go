// Package config provides the daemon configuration for Guardian.
//
// This package defines the configuration structure and validation:
//
//   - spec.go: GuardianConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (digest format, timeouts, backend paths)
//   - sanitize.go: Log sanitization (hide the expected key digest)
//
// Configuration is loaded via internal/infra/confloader from a YAML file
// and GUARDIAN_ environment variables.
package config
