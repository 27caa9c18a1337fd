package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/guardian/internal/server/httpserver/handler"
	"github.com/yndnr/guardian/internal/telemetry/logger"
	"github.com/yndnr/guardian/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Status  handler.StatusSource
	Devices handler.DeviceLister
	Scripts handler.ScriptChecker

	// Metrics is served on /metrics and records request metrics.
	Metrics *metric.Registry

	Logger logger.Logger

	// RateLimit is requests/second across all clients; 0 disables it.
	RateLimit int
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
// Order: RequestID -> Recover -> Observe -> RateLimit -> Handler
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metric.Global()
	}

	h := handler.New(handler.Config{
		Status:  cfg.Status,
		Devices: cfg.Devices,
		Scripts: cfg.Scripts,
		Logger:  log,
	})

	r := chi.NewRouter()
	r.Use(RequestID(), Recover(log), Observe(log, reg))
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(cfg.RateLimit))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, http.StatusNotFound, "GD-SYS-4040", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, http.StatusMethodNotAllowed, "GD-SYS-4050", "method not allowed")
	})

	r.Get("/health", h.Health)
	r.Get("/version", h.Version)
	r.Get("/status", h.Status)
	r.Get("/devices", h.Devices)
	r.Get("/scripts", h.Scripts)
	r.Method(http.MethodGet, "/metrics", reg.Handler())

	return r
}
