// Package domain defines the core domain models for Guardian.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Descriptor: device identity snapshot and its DeviceType
//   - Command: the command vocabulary and its script codes
//   - Session: transient session state and ULID session ids
//   - Errors: coded domain errors
package domain
