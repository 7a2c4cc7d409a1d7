package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpassistant/assistant-platform/internal/events"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/store"
	"github.com/helpassistant/assistant-platform/pkg/logger"
	"github.com/helpassistant/assistant-platform/pkg/metrics"
)

// DocumentManager stores uploaded files locally and registers them with the
// assistant's remote collection.
type DocumentManager struct {
	store       *store.Store
	provider    Provider
	collections *CollectionManager
	uploadDir   string
	maxBytes    int64
	events      events.Publisher
	logger      *logger.Logger
}

// NewDocumentManager creates a new document manager. maxBytes <= 0 disables
// the size limit.
func NewDocumentManager(
	st *store.Store,
	p Provider,
	collections *CollectionManager,
	uploadDir string,
	maxBytes int64,
	pub events.Publisher,
	log *logger.Logger,
) *DocumentManager {
	return &DocumentManager{
		store:       st,
		provider:    p,
		collections: collections,
		uploadDir:   uploadDir,
		maxBytes:    maxBytes,
		events:      pub,
		logger:      log,
	}
}

// ValidateFilename checks that name is a bare file name with an allowed
// extension.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("file", "filename is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.ContainsRune(name, 0) {
		return invalid("file", "filename must not contain a path")
	}
	ext := model.FileExtension(name)
	if !model.AllowedExtensions[ext] {
		return invalid("file", "file type %q is not allowed, use .pdf, .md or .txt", ext)
	}
	return nil
}

// Upload validates, stores and registers a document. If the provider rejects
// the file the local record is kept without a remote id and the error is
// returned.
func (m *DocumentManager) Upload(ctx context.Context, userID, assistantID, filename string, r io.Reader) (*model.Document, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	if _, err := ownedAssistant(ctx, m.store, userID, assistantID); err != nil {
		return nil, err
	}

	collection, err := m.collections.GetOrCreate(ctx, assistantID)
	if err != nil {
		return nil, err
	}

	id := store.NewID()
	storedName := id + "_" + filename
	path := filepath.Join(m.uploadDir, assistantID, storedName)

	size, err := m.writeFile(path, r)
	if err != nil {
		metrics.DocumentsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	collectionID := collection.RemoteID
	doc := &model.Document{
		ID:           id,
		AssistantID:  assistantID,
		Filename:     filename,
		StoredName:   storedName,
		FileType:     model.FileExtension(filename),
		FileSize:     size,
		FilePath:     path,
		CollectionID: &collectionID,
		UploadedAt:   time.Now().UTC(),
	}
	if err := m.store.CreateDocument(ctx, doc); err != nil {
		m.removeFile(path)
		return nil, fmt.Errorf("save document: %w", err)
	}

	remoteID, err := m.pushFile(ctx, collectionID, doc)
	if err != nil {
		metrics.DocumentsTotal.WithLabelValues("remote_failed").Inc()
		m.logger.Error("document not registered with provider",
			zap.String("document_id", doc.ID),
			zap.String("assistant_id", assistantID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("register document %s: %w", doc.ID, err)
	}

	if err := m.store.SetDocumentRemoteID(ctx, doc.ID, remoteID); err != nil {
		return nil, fmt.Errorf("save remote id: %w", err)
	}
	doc.RemoteID = &remoteID

	metrics.DocumentsTotal.WithLabelValues("ok").Inc()
	publish(ctx, m.events, model.EventDocumentUploaded, assistantID, "", map[string]any{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"remote_id":   remoteID,
	})
	m.logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("assistant_id", assistantID),
		zap.Int64("size", size),
	)
	return doc, nil
}

// writeFile streams r into a new file at path. Nothing is left behind on failure.
func (m *DocumentManager) writeFile(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	src := &sourceReader{r: r}
	var limited io.Reader = src
	if m.maxBytes > 0 {
		limited = io.LimitReader(src, m.maxBytes+1)
	}
	n, err := io.Copy(f, limited)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		m.removeFile(path)
		if src.err != nil {
			return 0, fmt.Errorf("read upload: %w: %w", ErrIncompleteUpload, src.err)
		}
		return 0, fmt.Errorf("write file: %w", err)
	}

	if m.maxBytes > 0 && n > m.maxBytes {
		m.removeFile(path)
		return 0, invalid("file", "file exceeds %d bytes", m.maxBytes)
	}
	if n == 0 {
		m.removeFile(path)
		return 0, invalid("file", "file is empty")
	}
	return n, nil
}

// sourceReader records the error of the client stream so it can be told apart
// from disk failures.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

func (m *DocumentManager) pushFile(ctx context.Context, collectionID string, doc *model.Document) (string, error) {
	f, err := os.Open(doc.FilePath)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer f.Close()
	return m.provider.UploadFile(ctx, collectionID, doc.Filename, f)
}

func (m *DocumentManager) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Error("failed to remove file", zap.String("path", path), zap.Error(err))
	}
}

// List returns the documents of an assistant owned by userID.
func (m *DocumentManager) List(ctx context.Context, userID, assistantID string) ([]*model.Document, error) {
	if _, err := ownedAssistant(ctx, m.store, userID, assistantID); err != nil {
		return nil, err
	}
	docs, err := m.store.ListDocuments(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get returns one document of an assistant owned by userID.
func (m *DocumentManager) Get(ctx context.Context, userID, assistantID, documentID string) (*model.Document, error) {
	if _, err := ownedAssistant(ctx, m.store, userID, assistantID); err != nil {
		return nil, err
	}
	doc, err := m.store.GetDocument(ctx, assistantID, documentID)
	if err != nil {
		return nil, notFound(err, "document")
	}
	return doc, nil
}

// Open returns a document with its stored file opened for reading. The caller
// closes the file.
func (m *DocumentManager) Open(ctx context.Context, userID, assistantID, documentID string) (*model.Document, *os.File, error) {
	doc, err := m.Get(ctx, userID, assistantID, documentID)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(doc.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("document file: %w", ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return doc, f, nil
}

// Delete removes a document. The remote deletion is best effort; the record
// and the file are removed together or not at all.
func (m *DocumentManager) Delete(ctx context.Context, userID, assistantID, documentID string) error {
	doc, err := m.Get(ctx, userID, assistantID, documentID)
	if err != nil {
		return err
	}

	if doc.Registered() && doc.CollectionID != nil {
		if err := m.provider.DeleteDocument(ctx, *doc.CollectionID, *doc.RemoteID); err != nil {
			m.logger.Warn("remote document deletion failed",
				zap.String("document_id", doc.ID),
				zap.String("remote_id", *doc.RemoteID),
				zap.Error(err),
			)
		}
	}

	err = m.store.DeleteDocument(ctx, doc.ID, func() error {
		if err := os.Remove(doc.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return notFound(err, "document")
	}
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	publish(ctx, m.events, model.EventDocumentDeleted, assistantID, "", map[string]any{"document_id": doc.ID})
	return nil
}

// Sync fills missing remote ids by matching local filenames against the
// documents listed by the provider.
func (m *DocumentManager) Sync(ctx context.Context, userID, assistantID string) (int, error) {
	docs, err := m.List(ctx, userID, assistantID)
	if err != nil {
		return 0, err
	}

	collection, err := m.collections.Get(ctx, assistantID)
	if err != nil || collection == nil {
		return 0, err
	}

	remote, err := m.provider.ListDocuments(ctx, collection.RemoteID)
	if err != nil {
		return 0, err
	}
	claimed := make(map[string]bool, len(docs))
	pending := make(map[string]int, len(docs))
	for _, doc := range docs {
		if doc.Registered() {
			claimed[*doc.RemoteID] = true
		} else {
			pending[doc.Filename]++
		}
	}

	// A name is only reconciled when exactly one unclaimed remote document
	// and exactly one unregistered local row carry it.
	byName := make(map[string]string, len(remote))
	remoteCount := make(map[string]int, len(remote))
	for _, rd := range remote {
		if rd.ID == "" || claimed[rd.ID] {
			continue
		}
		remoteCount[rd.Name]++
		byName[rd.Name] = rd.ID
	}

	reconciled := 0
	for _, doc := range docs {
		if doc.Registered() {
			continue
		}
		remoteID, ok := byName[doc.Filename]
		if !ok {
			continue
		}
		if remoteCount[doc.Filename] != 1 || pending[doc.Filename] != 1 {
			m.logger.Warn("ambiguous document name, not reconciled",
				zap.String("assistant_id", assistantID),
				zap.String("filename", doc.Filename),
			)
			continue
		}
		if err := m.store.SetDocumentRemoteID(ctx, doc.ID, remoteID); err != nil {
			return reconciled, fmt.Errorf("save remote id: %w", err)
		}
		reconciled++
	}

	if reconciled > 0 {
		m.logger.Info("documents reconciled",
			zap.String("assistant_id", assistantID),
			zap.Int("count", reconciled),
		)
	}
	return reconciled, nil
}
