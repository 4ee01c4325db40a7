// Package httphandler is the HTTP driving adapter serving the status API.
package httphandler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prshepherd/prshepherd/internal/application"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// Handler serves the read-only status API: active sessions from the watch
// service plus finished sessions from the store.
type Handler struct {
	store    driven.SessionStore
	watchSvc *application.WatchService
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(store driven.SessionStore, watchSvc *application.WatchService, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		watchSvc: watchSvc,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/sessions", h.ListSessions)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.GetSession)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListSessions returns currently running sessions followed by stored ones.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	resp := sessionListResponse{
		Active: []sessionResponse{},
		Stored: []sessionResponse{},
	}

	for _, s := range h.watchSvc.ActiveSessions() {
		resp.Active = append(resp.Active, toSessionResponse(s, false))
	}

	stored, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	for _, s := range stored {
		resp.Stored = append(resp.Stored, toSessionResponse(s, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSession returns one stored session by ID, with its summary rendered to
// sanitized HTML.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get session", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(*session, true))
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
