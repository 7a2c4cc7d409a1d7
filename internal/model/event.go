package model

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

const (
	EventMessageCreated    EventType = "message.created"
	EventChatCreated       EventType = "chat.created"
	EventDocumentUploaded  EventType = "document.uploaded"
	EventDocumentDeleted   EventType = "document.deleted"
	EventCollectionCreated EventType = "collection.created"
	EventCollectionDeleted EventType = "collection.deleted"
	EventAssistantDeleted  EventType = "assistant.deleted"
)

// Event is a domain event published after a state change has been committed.
type Event struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	AssistantID string         `json:"assistant_id"`
	ChatID      string         `json:"chat_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
