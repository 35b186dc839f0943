package handler

import (
	"log/slog"
	"net/http"

	"github.com/samims/notifyhub/internal/service"
)

type HealthHandler struct {
	service service.HealthService
	logger  *slog.Logger
}

func NewHealthHandler(svc service.HealthService, l *slog.Logger) *HealthHandler {
	return &HealthHandler{service: svc, logger: l.With("layer", "handler", "component", "health")}
}

// Liveness only reports that the process serves HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, "ok", nil)
}

// Readiness pings every dependency.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	status := h.service.Check(r.Context())
	if !service.Healthy(status) {
		h.logger.Warn("readiness check failed", slog.Any("status", status))
		writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Message: "not ready", Data: status})
		return
	}
	writeOK(w, "ready", status)
}
