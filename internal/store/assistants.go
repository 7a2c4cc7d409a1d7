package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helpassistant/assistant-platform/internal/model"
)

// CreateUser inserts a user. Accounts are owned by the auth service; this is
// used to mirror them locally and to seed tests.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	m := userToModel(u)
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

// EnsureUser inserts the user unless a row with the same id already exists.
func (s *Store) EnsureUser(ctx context.Context, u *model.User) error {
	m := userToModel(u)
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&m).Error)
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var m UserModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return userFromModel(m), nil
}

// CreateAssistant inserts an assistant.
func (s *Store) CreateAssistant(ctx context.Context, a *model.Assistant) error {
	m, err := assistantToModel(a)
	if err != nil {
		return err
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

// GetAssistant loads an assistant by id.
func (s *Store) GetAssistant(ctx context.Context, id string) (*model.Assistant, error) {
	var m AssistantModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return assistantFromModel(m)
}

// ListAssistantsByUser returns the assistants owned by userID, newest first.
func (s *Store) ListAssistantsByUser(ctx context.Context, userID string) ([]*model.Assistant, error) {
	var rows []AssistantModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*model.Assistant, 0, len(rows))
	for _, m := range rows {
		a, err := assistantFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// UpdateAssistant replaces the editable fields of an assistant.
func (s *Store) UpdateAssistant(ctx context.Context, a *model.Assistant) error {
	m, err := assistantToModel(a)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&AssistantModel{}).Where("id = ?", a.ID).
		Select("name", "url", "mission", "description", "operator_name", "operator_pic", "authorizations", "tone", "updated_at").
		Updates(&m)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAssistant removes an assistant with its chats, messages, documents
// and collection record in one transaction.
func (s *Store) DeleteAssistant(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chatIDs := tx.Model(&ChatModel{}).Select("id").Where("assistant_id = ?", id)
		if err := tx.Where("chat_id IN (?)", chatIDs).Delete(&MessageModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assistant_id = ?", id).Delete(&ChatModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assistant_id = ?", id).Delete(&DocumentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assistant_id = ?", id).Delete(&CollectionModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&AssistantModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}
