package handler

import (
	"net/http"

	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/service"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

// CollectionHandler exposes an assistant's retrieval collection.
type CollectionHandler struct {
	collections *service.CollectionManager
	logger      *logger.Logger
}

// NewCollectionHandler creates a new collection handler.
func NewCollectionHandler(collections *service.CollectionManager, log *logger.Logger) *CollectionHandler {
	return &CollectionHandler{
		collections: collections,
		logger:      log,
	}
}

// Get handles GET /api/v1/help-assistant/{id}/collection
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.collections.ForAssistant(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Search handles POST /api/v1/help-assistant/{id}/agent/search
func (h *CollectionHandler) Search(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req model.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	resp, err := h.collections.Search(r.Context(), currentUser(r).ID, id, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
