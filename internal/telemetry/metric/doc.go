// Package metric provides Prometheus metrics for Guardian.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, recording helpers and HTTP handler
//   - collector.go: control loop state collector
//
// Metrics include:
//
//   - Device discovery and session outcome counters
//   - Authentication failure counters
//   - Command dispatch counters and latency histograms
//   - HTTP request counters
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
