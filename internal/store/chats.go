package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/helpassistant/assistant-platform/internal/model"
)

// CreateChat inserts a chat session in the active state.
func (s *Store) CreateChat(ctx context.Context, assistantID, userID string) (*model.Chat, error) {
	now := time.Now().UTC()
	m := ChatModel{
		ID:          NewID(),
		AssistantID: assistantID,
		UserID:      userID,
		State:       string(model.ChatStateActive),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, translate(err)
	}
	return chatFromModel(m), nil
}

// GetChat loads a chat by id.
func (s *Store) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	var m ChatModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return chatFromModel(m), nil
}

// ListChats returns the chats of userID with an assistant, most recently
// active first.
func (s *Store) ListChats(ctx context.Context, assistantID, userID string) ([]*model.Chat, error) {
	var rows []ChatModel
	err := s.db.WithContext(ctx).
		Where("assistant_id = ? AND user_id = ?", assistantID, userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*model.Chat, 0, len(rows))
	for _, m := range rows {
		out = append(out, chatFromModel(m))
	}
	return out, nil
}

// AppendMessage assigns the next sequence number of the chat and inserts the
// message. The counter update takes the chat row lock, so concurrent appends
// to one chat are serialized and sequence numbers never collide.
func (s *Store) AppendMessage(ctx context.Context, chatID string, emitter model.Emitter, content string, sources []string) (*model.Message, error) {
	var raw datatypes.JSON
	if len(sources) > 0 {
		b, err := json.Marshal(sources)
		if err != nil {
			return nil, err
		}
		raw = datatypes.JSON(b)
	}

	now := time.Now().UTC()
	m := MessageModel{
		ID:        NewID(),
		ChatID:    chatID,
		Content:   content,
		Emitter:   string(emitter),
		Sources:   raw,
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ChatModel{}).Where("id = ?", chatID).Updates(map[string]any{
			"last_seq":   gorm.Expr("last_seq + 1"),
			"updated_at": now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var chat ChatModel
		if err := tx.Select("id", "last_seq").Where("id = ?", chatID).First(&chat).Error; err != nil {
			return err
		}
		m.Seq = chat.LastSeq
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, translate(err)
	}

	msg, err := messageFromModel(m)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns the messages of a chat in sequence order.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	var rows []MessageModel
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]model.Message, 0, len(rows))
	for _, m := range rows {
		msg, err := messageFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}
