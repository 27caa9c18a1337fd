package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/core/service"
	"github.com/yndnr/guardian/internal/telemetry/logger"
)

// StatusSource provides control loop snapshots.
type StatusSource interface {
	Snapshot() service.Status
}

// DeviceLister lists visible devices.
type DeviceLister interface {
	List(ctx context.Context) ([]domain.Descriptor, error)
}

// ScriptChecker reports response script availability.
type ScriptChecker interface {
	ScriptDir() string
	Preflight() []service.ScriptCheck
}

// Config wires the handler to the running daemon. Devices and Scripts
// may be nil; their endpoints then answer 503.
type Config struct {
	Status  StatusSource
	Devices DeviceLister
	Scripts ScriptChecker
	Logger  logger.Logger
}

// Handler serves the daemon's HTTP endpoints.
type Handler struct {
	status  StatusSource
	devices DeviceLister
	scripts ScriptChecker
	logger  logger.Logger
}

// New creates a Handler.
func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		status:  cfg.Status,
		devices: cfg.Devices,
		scripts: cfg.Scripts,
		logger:  log,
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, code, message, nil)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// WriteError writes an error envelope. Middleware uses it for panics and
// unknown routes.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	(&Handler{logger: logger.Default()}).writeError(w, r, status, code, message)
}

// handleServiceError converts domain errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if code := domain.GetErrorCode(err); code != "" {
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "GD-SYS-5000", "internal server error")
}

// errorCodeToHTTPStatus maps GD-<AREA>-<NNNN> codes to HTTP status codes.
// The first three digits of NNNN are the status.
func errorCodeToHTTPStatus(code string) int {
	i := strings.LastIndexByte(code, '-')
	if i < 0 || len(code)-i-1 != 4 {
		return http.StatusInternalServerError
	}
	n, err := strconv.Atoi(code[i+1 : i+4])
	if err != nil || http.StatusText(n) == "" {
		return http.StatusInternalServerError
	}
	return n
}
