package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging and printing configuration.
func Sanitize(cfg *GuardianConfig) *GuardianConfig {
	sanitized := *cfg
	sanitized.Dispatch.StatusCommand = append([]string(nil), cfg.Dispatch.StatusCommand...)

	if sanitized.Auth.ExpectedKeyHash != "" {
		sanitized.Auth.ExpectedKeyHash = maskSecret(sanitized.Auth.ExpectedKeyHash)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
