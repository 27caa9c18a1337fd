package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/guardian/internal/infra/buildinfo"
)

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC(),
	}
	if h.status != nil {
		st := h.status.Snapshot()
		resp.State = st.State.String()
		resp.Uptime = time.Since(st.StartedAt).Truncate(time.Second).String()
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// Version handles GET /version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, buildinfo.Get())
}
