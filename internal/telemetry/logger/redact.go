package logger

import (
	"log/slog"
	"strings"
)

// Sensitive key patterns that should be fully redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"key_hash",
	"digest",
	"credential",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// digestLength is the length of a hex-encoded SHA-256 digest.
const digestLength = 64

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strVal == "" {
			return a
		}

		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}

		// Digest-shaped values get a partial mask regardless of key.
		if IsSensitiveValue(strVal) {
			return slog.String(a.Key, maskValue(strVal))
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps the first and last 4 characters.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// RedactString manually redacts a string value.
// Use this when a value ends up inside a message rather than an attribute.
func RedactString(value string) string {
	if IsSensitiveValue(value) {
		return maskValue(value)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether value looks like a hex SHA-256 digest.
func IsSensitiveValue(value string) bool {
	if len(value) != digestLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
