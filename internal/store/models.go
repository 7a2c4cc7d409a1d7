package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID        string    `gorm:"primaryKey"`
	Email     string    `gorm:"index"`
	FullName  string
	CreatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type AssistantModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"not null;index"`
	Name           string `gorm:"not null"`
	URL            string
	Mission        string `gorm:"type:text;not null"`
	Description    string `gorm:"type:text"`
	OperatorName   string `gorm:"not null"`
	OperatorPic    string
	Authorizations datatypes.JSON
	Tone           string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (AssistantModel) TableName() string { return "assistants" }

type CollectionModel struct {
	ID          string    `gorm:"primaryKey"`
	AssistantID string    `gorm:"uniqueIndex;not null"`
	RemoteID    string    `gorm:"not null"`
	Name        string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (CollectionModel) TableName() string { return "collections" }

type DocumentModel struct {
	ID           string `gorm:"primaryKey"`
	AssistantID  string `gorm:"not null;index"`
	Filename     string `gorm:"not null"`
	StoredName   string `gorm:"not null"`
	FileType     string `gorm:"not null"`
	FileSize     int64  `gorm:"not null"`
	FilePath     string `gorm:"not null"`
	CollectionID *string
	RemoteID     *string
	UploadedAt   time.Time `gorm:"not null;index"`
}

func (DocumentModel) TableName() string { return "documents" }

type ChatModel struct {
	ID          string    `gorm:"primaryKey"`
	AssistantID string    `gorm:"not null;index"`
	UserID      string    `gorm:"not null;index"`
	State       string    `gorm:"not null"`
	LastSeq     int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (ChatModel) TableName() string { return "chats" }

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"not null;uniqueIndex:idx_messages_chat_seq"`
	Seq       int64     `gorm:"not null;uniqueIndex:idx_messages_chat_seq"`
	Content   string    `gorm:"type:text;not null"`
	Emitter   string    `gorm:"not null"`
	Sources   datatypes.JSON
	CreatedAt time.Time `gorm:"not null"`
}

func (MessageModel) TableName() string { return "messages" }
