package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/helpassistant/assistant-platform/internal/model"
)

// GetCollectionByAssistant returns the collection of an assistant.
func (s *Store) GetCollectionByAssistant(ctx context.Context, assistantID string) (*model.Collection, error) {
	var m CollectionModel
	if err := s.db.WithContext(ctx).Where("assistant_id = ?", assistantID).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return collectionFromModel(m), nil
}

// CreateCollection inserts a collection record. A second record for the same
// assistant fails with ErrDuplicate.
func (s *Store) CreateCollection(ctx context.Context, c *model.Collection) error {
	m := collectionToModel(c)
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

// DeleteCollection removes a collection record.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&CollectionModel{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateDocument inserts a document record.
func (s *Store) CreateDocument(ctx context.Context, d *model.Document) error {
	m := documentToModel(d)
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

// GetDocument loads a document belonging to assistantID.
func (s *Store) GetDocument(ctx context.Context, assistantID, id string) (*model.Document, error) {
	var m DocumentModel
	if err := s.db.WithContext(ctx).Where("id = ? AND assistant_id = ?", id, assistantID).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return documentFromModel(m), nil
}

// ListDocuments returns the documents of an assistant in upload order.
func (s *Store) ListDocuments(ctx context.Context, assistantID string) ([]*model.Document, error) {
	var rows []DocumentModel
	if err := s.db.WithContext(ctx).Where("assistant_id = ?", assistantID).Order("uploaded_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*model.Document, 0, len(rows))
	for _, m := range rows {
		out = append(out, documentFromModel(m))
	}
	return out, nil
}

// SetDocumentRemoteID records the provider's identifier for a document.
func (s *Store) SetDocumentRemoteID(ctx context.Context, id, remoteID string) error {
	res := s.db.WithContext(ctx).Model(&DocumentModel{}).Where("id = ?", id).Update("remote_id", remoteID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument deletes a document record and runs removeFile in the same
// transaction. An error from removeFile rolls the deletion back.
func (s *Store) DeleteDocument(ctx context.Context, id string, removeFile func() error) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&DocumentModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if removeFile != nil {
			return removeFile()
		}
		return nil
	}))
}
