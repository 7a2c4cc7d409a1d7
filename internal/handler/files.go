package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/service"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart envelope.
const multipartOverhead = 1 << 20

// FileHandler handles document upload, listing, download and deletion.
type FileHandler struct {
	documents *service.DocumentManager
	maxBytes  int64
	logger    *logger.Logger
}

// NewFileHandler creates a new file handler. maxBytes bounds the request body.
func NewFileHandler(docs *service.DocumentManager, maxBytes int64, log *logger.Logger) *FileHandler {
	return &FileHandler{
		documents: docs,
		maxBytes:  maxBytes,
		logger:    log,
	}
}

// Upload handles POST /api/v1/help-assistant/{id}/files
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "expected a multipart/form-data body")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeServiceError(w, r, h.logger, err)
				return
			}
			writeError(w, http.StatusBadRequest, "bad_request", "malformed multipart body")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		doc, err := h.documents.Upload(r.Context(), currentUser(r).ID, id, part.FileName(), part)
		part.Close()
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
		return
	}

	writeError(w, http.StatusUnprocessableEntity, "validation_error", "file: is required")
}

// List handles GET /api/v1/help-assistant/{id}/files
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	docs, err := h.documents.List(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if docs == nil {
		docs = []*model.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// Sync handles POST /api/v1/help-assistant/{id}/files/sync
func (h *FileHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.documents.Sync(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SyncResponse{Reconciled: n})
}

// Delete handles DELETE /api/v1/help-assistant/{id}/files/{file_id}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "file_id")
	if !ok {
		return
	}

	if err := h.documents.Delete(r.Context(), currentUser(r).ID, id, fileID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download handles GET /api/v1/help-assistant/{id}/files/{file_id}/download
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "file_id")
	if !ok {
		return
	}

	doc, f, err := h.documents.Open(r.Context(), currentUser(r).ID, id, fileID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": doc.Filename,
	}))
	http.ServeContent(w, r, doc.Filename, doc.UploadedAt, f)
}
