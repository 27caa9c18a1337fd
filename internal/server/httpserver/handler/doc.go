// Package handler provides the read-only HTTP endpoints of the guardian
// daemon.
//
// Endpoints:
//
//   - GET /health: liveness
//   - GET /status: control loop snapshot
//   - GET /devices: devices currently visible to the backend
//   - GET /scripts: response script preflight
//   - GET /version: build information
//
// Every JSON body uses the Response envelope. Nothing here can trigger a
// command; commands only ever come from an authenticated token.
package handler
