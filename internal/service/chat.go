package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/helpassistant/assistant-platform/internal/events"
	"github.com/helpassistant/assistant-platform/internal/llm"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/provider"
	"github.com/helpassistant/assistant-platform/internal/store"
	"github.com/helpassistant/assistant-platform/pkg/logger"
	"github.com/helpassistant/assistant-platform/pkg/metrics"
)

const maxMessageLen = 100_000

// ChatOrchestrator runs chat sessions between users and their assistants.
type ChatOrchestrator struct {
	store       *store.Store
	provider    Provider
	collections *CollectionManager
	events      events.Publisher
	logger      *logger.Logger
}

// NewChatOrchestrator creates a new chat orchestrator.
func NewChatOrchestrator(st *store.Store, p Provider, collections *CollectionManager, pub events.Publisher, log *logger.Logger) *ChatOrchestrator {
	return &ChatOrchestrator{
		store:       st,
		provider:    p,
		collections: collections,
		events:      pub,
		logger:      log,
	}
}

// InitChat opens a chat and persists the greeting as its first message. A
// failed rephrasing falls back to the plain greeting.
func (o *ChatOrchestrator) InitChat(ctx context.Context, userID, assistantID string) (*model.InitChatResponse, error) {
	if _, err := o.store.GetUser(ctx, userID); err != nil {
		return nil, notFound(err, "user")
	}
	a, err := ownedAssistant(ctx, o.store, userID, assistantID)
	if err != nil {
		return nil, err
	}

	chat, err := o.store.CreateChat(ctx, a.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	metrics.ChatsTotal.Inc()
	publish(ctx, o.events, model.EventChatCreated, a.ID, chat.ID, nil)

	greeting := Greeting(a)
	text, err := o.provider.Rephrase(ctx, greeting, a.Tone)
	if err != nil {
		metrics.RephraseFallbacks.Inc()
		o.logger.Warn("greeting rephrase failed, using template",
			zap.String("chat_id", chat.ID),
			zap.Error(err),
		)
		text = greeting
	}

	msg, err := o.appendMessage(ctx, a.ID, chat.ID, model.EmitterAssistant, text, nil)
	if err != nil {
		return nil, err
	}

	o.logger.Info("chat started",
		zap.String("chat_id", chat.ID),
		zap.String("assistant_id", a.ID),
		zap.String("user_id", userID),
	)
	return &model.InitChatResponse{
		ChatID:    chat.ID,
		Assistant: a.Summary(),
		Messages:  []model.Message{*msg},
	}, nil
}

// AddMessage persists the user's message, asks the provider for a reply and
// persists it. The user's message is committed before the provider is
// called and survives any later failure.
func (o *ChatOrchestrator) AddMessage(ctx context.Context, userID, assistantID, chatID, content string) (*model.SendMessageResponse, error) {
	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		return nil, err
	}

	a, chat, err := o.loadChat(ctx, userID, assistantID, chatID)
	if err != nil {
		return nil, err
	}

	userMsg, err := o.appendMessage(ctx, a.ID, chat.ID, model.EmitterUser, content, nil)
	if err != nil {
		return nil, err
	}

	stored, err := o.store.ListMessages(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]llm.ChatMessage, 0, len(stored))
	for _, m := range stored {
		if m.Seq >= userMsg.Seq {
			break
		}
		history = append(history, llm.ChatMessage{Role: m.Emitter.Role(), Content: m.Content})
	}

	system := SystemPrompt(a)

	collection, err := o.collections.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	var (
		answer  string
		sources []string
	)
	if collection != nil {
		resp, err := o.provider.ChatWithContext(ctx, collection.RemoteID, system, history, content)
		if err != nil {
			return nil, o.replyFailed(chat.ID, err)
		}
		answer, sources = resp.Answer, resp.Sources
	} else {
		messages := append(history, llm.ChatMessage{Role: model.EmitterUser.Role(), Content: content})
		resp, err := o.provider.ChatCompletion(ctx, system, messages)
		if err != nil {
			return nil, o.replyFailed(chat.ID, err)
		}
		answer = resp.Content
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, o.replyFailed(chat.ID, &provider.Error{Op: "chat_completion", StatusCode: 200, Body: "empty answer"})
	}

	reply, err := o.appendMessage(ctx, a.ID, chat.ID, model.EmitterAssistant, answer, sources)
	if err != nil {
		return nil, err
	}

	return &model.SendMessageResponse{
		Message:   reply,
		Assistant: a.Summary(),
	}, nil
}

func (o *ChatOrchestrator) replyFailed(chatID string, err error) error {
	o.logger.Error("assistant reply failed",
		zap.String("chat_id", chatID),
		zap.Error(err),
	)
	return fmt.Errorf("generate reply: %w", err)
}

// History returns the ordered messages of a chat.
func (o *ChatOrchestrator) History(ctx context.Context, userID, assistantID, chatID string) (*model.ListMessagesResponse, error) {
	_, chat, err := o.loadChat(ctx, userID, assistantID, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := o.store.ListMessages(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &model.ListMessagesResponse{ChatID: chat.ID, Messages: msgs}, nil
}

// ListChats returns the caller's chats with an assistant they own.
func (o *ChatOrchestrator) ListChats(ctx context.Context, userID, assistantID string) ([]*model.Chat, error) {
	if _, err := ownedAssistant(ctx, o.store, userID, assistantID); err != nil {
		return nil, err
	}
	chats, err := o.store.ListChats(ctx, assistantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// loadChat resolves the assistant and the chat. A chat of another assistant
// is reported as missing; a chat of another user is forbidden.
func (o *ChatOrchestrator) loadChat(ctx context.Context, userID, assistantID, chatID string) (*model.Assistant, *model.Chat, error) {
	a, err := o.store.GetAssistant(ctx, assistantID)
	if err != nil {
		return nil, nil, notFound(err, "assistant")
	}
	chat, err := o.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, nil, notFound(err, "chat")
	}
	if chat.AssistantID != a.ID {
		return nil, nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	if chat.UserID != userID {
		return nil, nil, fmt.Errorf("chat %s: %w", chatID, ErrForbidden)
	}
	return a, chat, nil
}

func (o *ChatOrchestrator) appendMessage(ctx context.Context, assistantID, chatID string, emitter model.Emitter, content string, sources []string) (*model.Message, error) {
	msg, err := o.store.AppendMessage(ctx, chatID, emitter, content, sources)
	if err != nil {
		return nil, fmt.Errorf("save %s message: %w", strings.ToLower(string(emitter)), err)
	}
	metrics.MessagesTotal.WithLabelValues(string(emitter)).Inc()
	publish(ctx, o.events, model.EventMessageCreated, assistantID, chatID, map[string]any{
		"message_id": msg.ID,
		"seq":        msg.Seq,
		"emitter":    string(emitter),
	})
	return msg, nil
}

func validateContent(content string) error {
	switch {
	case content == "":
		return invalid("content", "is required")
	case len(content) > maxMessageLen:
		return invalid("content", "must be at most %d bytes", maxMessageLen)
	case !utf8.ValidString(content):
		return invalid("content", "must be valid UTF-8")
	}
	return nil
}
