package store

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/helpassistant/assistant-platform/internal/model"
)

func userToModel(u *model.User) UserModel {
	return UserModel{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}

func userFromModel(m UserModel) *model.User {
	return &model.User{
		ID:        m.ID,
		Email:     m.Email,
		FullName:  m.FullName,
		CreatedAt: m.CreatedAt,
	}
}

func assistantToModel(a *model.Assistant) (AssistantModel, error) {
	auths := a.Authorizations
	if auths == nil {
		auths = []model.Authorization{}
	}
	raw, err := json.Marshal(auths)
	if err != nil {
		return AssistantModel{}, err
	}
	return AssistantModel{
		ID:             a.ID,
		UserID:         a.UserID,
		Name:           a.Name,
		URL:            a.URL,
		Mission:        a.Mission,
		Description:    a.Description,
		OperatorName:   a.OperatorName,
		OperatorPic:    a.OperatorPic,
		Authorizations: datatypes.JSON(raw),
		Tone:           string(a.Tone),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}, nil
}

func assistantFromModel(m AssistantModel) (*model.Assistant, error) {
	auths := []model.Authorization{}
	if len(m.Authorizations) > 0 {
		if err := json.Unmarshal(m.Authorizations, &auths); err != nil {
			return nil, err
		}
	}
	return &model.Assistant{
		ID:             m.ID,
		UserID:         m.UserID,
		Name:           m.Name,
		URL:            m.URL,
		Mission:        m.Mission,
		Description:    m.Description,
		OperatorName:   m.OperatorName,
		OperatorPic:    m.OperatorPic,
		Authorizations: auths,
		Tone:           model.Tone(m.Tone),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

func collectionToModel(c *model.Collection) CollectionModel {
	return CollectionModel{
		ID:          c.ID,
		AssistantID: c.AssistantID,
		RemoteID:    c.RemoteID,
		Name:        c.Name,
		CreatedAt:   c.CreatedAt,
	}
}

func collectionFromModel(m CollectionModel) *model.Collection {
	return &model.Collection{
		ID:          m.ID,
		AssistantID: m.AssistantID,
		RemoteID:    m.RemoteID,
		Name:        m.Name,
		CreatedAt:   m.CreatedAt,
	}
}

func documentToModel(d *model.Document) DocumentModel {
	return DocumentModel{
		ID:           d.ID,
		AssistantID:  d.AssistantID,
		Filename:     d.Filename,
		StoredName:   d.StoredName,
		FileType:     d.FileType,
		FileSize:     d.FileSize,
		FilePath:     d.FilePath,
		CollectionID: d.CollectionID,
		RemoteID:     d.RemoteID,
		UploadedAt:   d.UploadedAt,
	}
}

func documentFromModel(m DocumentModel) *model.Document {
	return &model.Document{
		ID:           m.ID,
		AssistantID:  m.AssistantID,
		Filename:     m.Filename,
		StoredName:   m.StoredName,
		FileType:     m.FileType,
		FileSize:     m.FileSize,
		FilePath:     m.FilePath,
		CollectionID: m.CollectionID,
		RemoteID:     m.RemoteID,
		UploadedAt:   m.UploadedAt,
	}
}

func chatFromModel(m ChatModel) *model.Chat {
	return &model.Chat{
		ID:          m.ID,
		AssistantID: m.AssistantID,
		UserID:      m.UserID,
		State:       model.ChatState(m.State),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func messageFromModel(m MessageModel) (model.Message, error) {
	var sources []string
	if len(m.Sources) > 0 {
		if err := json.Unmarshal(m.Sources, &sources); err != nil {
			return model.Message{}, err
		}
	}
	return model.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Seq:       m.Seq,
		Content:   m.Content,
		Emitter:   model.Emitter(m.Emitter),
		Sources:   sources,
		CreatedAt: m.CreatedAt,
	}, nil
}
