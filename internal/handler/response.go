package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// writeError maps an error class to its HTTP status. Internal details are
// logged, never returned.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case appErr.IsValidation(err):
		status, message = http.StatusBadRequest, appErr.Message(err)
	case appErr.IsUnauthorized(err):
		status, message = http.StatusUnauthorized, appErr.Message(err)
	case appErr.IsForbidden(err):
		status, message = http.StatusForbidden, appErr.Message(err)
	case appErr.IsNotFound(err):
		status, message = http.StatusNotFound, appErr.Message(err)
	case appErr.IsConflict(err):
		status, message = http.StatusConflict, appErr.Message(err)
	default:
		logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return appErr.NewValidation("request body is empty")
		}
		return appErr.NewValidation("invalid request body: %v", err)
	}
	return nil
}

func pageFromQuery(r *http.Request) (model.Page, error) {
	q := r.URL.Query()
	no, err := intParam(q.Get("pageNo"), 1)
	if err != nil {
		return model.Page{}, appErr.NewValidation("pageNo must be a number")
	}
	size, err := intParam(q.Get("pageSize"), model.DefaultPageSize)
	if err != nil {
		return model.Page{}, appErr.NewValidation("pageSize must be a number")
	}
	return model.NewPage(no, size), nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, appErr.NewValidation("%s is not a valid id", name)
	}
	return id, nil
}
