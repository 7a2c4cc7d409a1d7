package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Collection is the local record of an assistant's remote retrieval collection.
type Collection struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id"`
	RemoteID    string    `json:"remote_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// CollectionName is the deterministic remote name for an assistant's collection.
func CollectionName(assistantID string) string {
	return "assistant_" + assistantID + "_collection"
}

// Document is a file uploaded to an assistant.
type Document struct {
	ID           string    `json:"id"`
	AssistantID  string    `json:"assistant_id"`
	Filename     string    `json:"filename"`
	StoredName   string    `json:"-"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	FilePath     string    `json:"-"`
	CollectionID *string   `json:"collection_id,omitempty"`
	RemoteID     *string   `json:"remote_id,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Registered reports whether the provider accepted the document.
func (d *Document) Registered() bool {
	return d.RemoteID != nil && *d.RemoteID != ""
}

// AllowedExtensions are the document types accepted for upload.
var AllowedExtensions = map[string]bool{
	".pdf": true,
	".md":  true,
	".txt": true,
}

// FileExtension returns the lower-cased extension of name.
func FileExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// SearchRequest is an ad hoc semantic search against an assistant's collection.
type SearchRequest struct {
	Prompt string `json:"prompt"`
	K      int    `json:"k,omitempty"`
}

// SearchHit is one ranked chunk.
type SearchHit struct {
	Content      string            `json:"content"`
	DocumentName string            `json:"document_name"`
	Score        float64           `json:"score"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SearchResponse lists ranked chunks.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
}

// SyncResponse reports how many local documents gained a remote id.
type SyncResponse struct {
	Reconciled int `json:"reconciled"`
}
