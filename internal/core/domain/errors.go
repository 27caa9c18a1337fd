// Package domain defines the core domain models for Guardian.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes follow the format GD-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "GD-DEV-4080")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
// The cause's message is carried as details so it shows up in logs.
func (e *DomainError) Wrap(cause error) *DomainError {
	if cause == nil {
		return e
	}
	return e.WithDetails(cause.Error()).WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Device Errors (DEV)
// ============================================================================

var (
	// ErrDeviceIO indicates a connect, disconnect, read or write failure.
	ErrDeviceIO = NewDomainError("GD-DEV-5001", "device i/o error")

	// ErrDeviceNotFound indicates the requested device is not present.
	ErrDeviceNotFound = NewDomainError("GD-DEV-4040", "device not found")

	// ErrTimeout indicates a wait elapsed without a device or command.
	// It is a control signal, not a failure.
	ErrTimeout = NewDomainError("GD-DEV-4080", "timed out")
)

// ============================================================================
// Token Errors (TOKN)
// ============================================================================

var (
	// ErrWrongDeviceType indicates the device is not an authentication token.
	ErrWrongDeviceType = NewDomainError("GD-TOKN-4150", "device is not a token")

	// ErrIdentityMismatch indicates the token id differs from the configured key id.
	ErrIdentityMismatch = NewDomainError("GD-TOKN-4030", "unexpected token identity")

	// ErrTokenNotInitialized indicates the token was used before Initialize succeeded.
	ErrTokenNotInitialized = NewDomainError("GD-TOKN-4090", "token not initialized")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

// ErrAuthenticationFailed is returned for every authentication failure.
// It never carries details or a cause.
var ErrAuthenticationFailed = NewDomainError("GD-AUTH-4010", "authentication failed")

// ============================================================================
// Command Errors (CMD)
// ============================================================================

var (
	// ErrUnknownCommand indicates the command is not in the vocabulary.
	ErrUnknownCommand = NewDomainError("GD-CMD-4000", "unknown command")

	// ErrScriptExecution indicates a dispatch script exited non-zero or could not start.
	ErrScriptExecution = NewDomainError("GD-CMD-5000", "script execution failed")

	// ErrStatusCheck indicates the process listing command failed.
	ErrStatusCheck = NewDomainError("GD-CMD-5001", "status check failed")
)

// ============================================================================
// Configuration Errors (CFG)
// ============================================================================

// ErrInvalidConfig indicates configuration validation failed.
var ErrInvalidConfig = NewDomainError("GD-CFG-4000", "invalid configuration")
