// Package httpserver provides the local HTTP status server of the
// guardian daemon.
//
// It serves read-only endpoints (health, status, devices, scripts,
// version) and Prometheus metrics on a chi router. The default listen
// address is loopback only.
package httpserver
