package model

import (
	"time"
)

// ChatState is the lifecycle state of a chat session.
type ChatState string

const (
	ChatStateActive ChatState = "active"
)

// Chat is a conversation session between one user and one assistant.
type Chat struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id"`
	UserID      string    `json:"user_id"`
	State       ChatState `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Emitter identifies who wrote a message.
type Emitter string

const (
	EmitterUser      Emitter = "USER"
	EmitterAssistant Emitter = "ASSISTANT"
)

// Role maps the emitter to the role label expected by chat completion APIs.
func (e Emitter) Role() string {
	if e == EmitterAssistant {
		return "assistant"
	}
	return "user"
}

// Message is an immutable chat entry. Seq is the per-chat position and the
// only ordering key; CreatedAt is informational.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Seq       int64     `json:"seq"`
	Content   string    `json:"content"`
	Emitter   Emitter   `json:"emitter"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// InitChatResponse is returned when a chat session starts.
type InitChatResponse struct {
	ChatID    string           `json:"chat_id"`
	Assistant AssistantSummary `json:"assistant"`
	Messages  []Message        `json:"messages"`
}

// SendMessageResponse carries the assistant reply.
type SendMessageResponse struct {
	Message   *Message         `json:"message"`
	Assistant AssistantSummary `json:"assistant"`
}

// ListMessagesResponse is the ordered history of a chat.
type ListMessagesResponse struct {
	ChatID   string    `json:"chat_id"`
	Messages []Message `json:"messages"`
}
