package httpapi

import (
	"net/http"
)

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (h *Handler) liveness(w http.ResponseWriter, r *http.Request) {
	if err := h.probes.Liveness(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, probeResponse{Status: "down", Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, probeResponse{Status: "ok"})
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	checks, err := h.probes.Readiness(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, probeResponse{Status: "unavailable", Checks: checks, Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, probeResponse{Status: "ok", Checks: checks})
}
