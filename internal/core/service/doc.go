// Package service provides the Guardian domain services.
//
// Services contain the session logic and depend on the device
// capability interfaces, never on a concrete backend:
//
//   - IdentityToken: binds a device channel to the configured key id
//   - AuthGate: digest check over the token's key material
//   - Dispatcher: maps commands to dispatch scripts or a status query
//   - Guardian: the session state machine tying them together
//   - StatusTracker: read-only snapshot of the loop for the status API
//
// AuthGate and Dispatcher are immutable after construction. Guardian runs
// one session at a time and processes commands strictly in order.
package service
