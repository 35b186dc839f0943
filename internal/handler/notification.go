package handler

import (
	"log/slog"
	"net/http"

	"github.com/samims/notifyhub/internal/middleware"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/service"
)

// NotificationHandler serves the public, API-key authenticated endpoints.
type NotificationHandler struct {
	guard   service.QuotaGuard
	svc     service.NotificationService
	apiKeys service.APIKeyService
	logger  *slog.Logger
}

func NewNotificationHandler(guard service.QuotaGuard, svc service.NotificationService, apiKeys service.APIKeyService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		guard:   guard,
		svc:     svc,
		apiKeys: apiKeys,
		logger:  logger.With("layer", "handler", "component", "notification"),
	}
}

func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	key, err := h.guard.Validate(r.Context(), middleware.APIKeyFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req model.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.svc.Send(r.Context(), key, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "notification queued", resp)
}

func (h *NotificationHandler) SendSystem(w http.ResponseWriter, r *http.Request) {
	key, err := h.guard.Validate(r.Context(), middleware.APIKeyFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req model.SystemSendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.svc.SendSystem(r.Context(), key, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "notification queued", resp)
}

func (h *NotificationHandler) MyLogs(w http.ResponseWriter, r *http.Request) {
	key, err := h.guard.Identify(r.Context(), middleware.APIKeyFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := pageFromQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	logs, err := h.svc.GetMyLogs(r.Context(), key, p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "logs retrieved", logs)
}

func (h *NotificationHandler) BatchLogs(w http.ResponseWriter, r *http.Request) {
	key, err := h.guard.Identify(r.Context(), middleware.APIKeyFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	batchID, err := uuidParam(r, "batchId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := pageFromQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	logs, err := h.svc.GetBatchLogs(r.Context(), key, batchID, p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "logs retrieved", logs)
}

func (h *NotificationHandler) Log(w http.ResponseWriter, r *http.Request) {
	key, err := h.guard.Identify(r.Context(), middleware.APIKeyFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	logID, err := uuidParam(r, "logId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entry, err := h.svc.GetLog(r.Context(), key, logID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "log retrieved", entry)
}

// Usage stays reachable for expired or exhausted keys so clients can see why
// they are rejected.
func (h *NotificationHandler) Usage(w http.ResponseWriter, r *http.Request) {
	key, err := h.guard.Identify(r.Context(), middleware.APIKeyFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "usage retrieved", h.apiKeys.UsageStats(key))
}
