// Package logger provides structured logging for Guardian.
//
// This package wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the process default
//   - context.go: Context-aware logging with session and request IDs
//   - redact.go: Sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering with runtime adjustment
//   - Automatic masking of key digests and secrets
//   - Context propagation for session correlation
package logger
