// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/service"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

// AssistantHandler handles assistant endpoints.
type AssistantHandler struct {
	service *service.AssistantService
	logger  *logger.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(svc *service.AssistantService, log *logger.Logger) *AssistantHandler {
	return &AssistantHandler{
		service: svc,
		logger:  log,
	}
}

// Tones handles GET /api/v1/help-assistant/tones
func (h *AssistantHandler) Tones(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "fr"
	}
	writeJSON(w, http.StatusOK, model.ToneOptions(lang))
}

// Create handles POST /api/v1/help-assistant/
func (h *AssistantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.AssistantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	a, err := h.service.Create(r.Context(), currentUser(r), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// ListMine handles GET /api/v1/help-assistant/me
func (h *AssistantHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMine(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []*model.Assistant{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/v1/help-assistant/{id}
func (h *AssistantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.service.Get(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Update handles PUT /api/v1/help-assistant/{id}
func (h *AssistantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req model.AssistantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	a, err := h.service.Update(r.Context(), currentUser(r).ID, id, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/v1/help-assistant/{id}
func (h *AssistantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
