package handler

import (
	"net/http"

	"github.com/yndnr/guardian/internal/core/domain"
)

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "GD-SYS-5030", "status unavailable")
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.status.Snapshot())
}

// Devices handles GET /devices.
func (h *Handler) Devices(w http.ResponseWriter, r *http.Request) {
	if h.devices == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "GD-SYS-5030", "device listing unavailable")
		return
	}
	devices, err := h.devices.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if devices == nil {
		devices = []domain.Descriptor{}
	}
	h.writeJSON(w, r, http.StatusOK, DevicesResponse{Devices: devices})
}

// Scripts handles GET /scripts.
func (h *Handler) Scripts(w http.ResponseWriter, r *http.Request) {
	if h.scripts == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "GD-SYS-5030", "script preflight unavailable")
		return
	}
	checks := h.scripts.Preflight()
	ready := true
	for _, c := range checks {
		if !c.OK() {
			ready = false
		}
	}
	h.writeJSON(w, r, http.StatusOK, ScriptsResponse{
		Dir:     h.scripts.ScriptDir(),
		Scripts: checks,
		Ready:   ready,
	})
}
