package handler

import (
	"log/slog"
	"net/http"

	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/service"
)

// AdminHandler serves API key management and the system settings. Callers
// are authenticated by the admin middleware.
type AdminHandler struct {
	apiKeys  service.APIKeyService
	settings service.SettingsService
	logger   *slog.Logger
}

func NewAdminHandler(apiKeys service.APIKeyService, settings service.SettingsService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		apiKeys:  apiKeys,
		settings: settings,
		logger:   logger.With("layer", "handler", "component", "admin"),
	}
}

func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	key, err := h.apiKeys.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "api key created", Data: key})
}

func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	p, err := pageFromQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	keys, total, err := h.apiKeys.List(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "api keys retrieved", model.NewPageResult(keys, p, total))
}

func (h *AdminHandler) GetKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	key, err := h.apiKeys.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "api key retrieved", key)
}

func (h *AdminHandler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req model.UpdateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	key, err := h.apiKeys.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "api key updated", key)
}

func (h *AdminHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.apiKeys.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "api key deleted", nil)
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "settings retrieved", s)
}

func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	s, err := h.settings.Update(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, "settings updated", s)
}
