package handler

import (
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/core/service"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	State  string    `json:"state"`
	Uptime string    `json:"uptime"`
	Time   time.Time `json:"time"`
}

// DevicesResponse is the body of GET /devices.
type DevicesResponse struct {
	Devices []domain.Descriptor `json:"devices"`
}

// ScriptsResponse is the body of GET /scripts.
type ScriptsResponse struct {
	Dir     string                `json:"dir"`
	Scripts []service.ScriptCheck `json:"scripts"`
	Ready   bool                  `json:"ready"`
}
