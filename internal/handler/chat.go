package handler

import (
	"net/http"

	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/service"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

// ChatHandler handles chat session endpoints.
type ChatHandler struct {
	chats  *service.ChatOrchestrator
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chats *service.ChatOrchestrator, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chats:  chats,
		logger: log,
	}
}

// Init handles POST /api/v1/help-assistant/{id}/chat/init
func (h *ChatHandler) Init(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	resp, err := h.chats.InitChat(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/v1/help-assistant/{id}/chat
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	chats, err := h.chats.ListChats(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if chats == nil {
		chats = []*model.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

// Messages handles GET /api/v1/help-assistant/{id}/chat/{chat_id}/messages
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chat_id")
	if !ok {
		return
	}

	resp, err := h.chats.History(r.Context(), currentUser(r).ID, id, chatID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /api/v1/help-assistant/{id}/chat/{chat_id}/message
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chat_id")
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	resp, err := h.chats.AddMessage(r.Context(), currentUser(r).ID, id, chatID, req.Content)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
