package service

import (
	"context"
	"io"

	"github.com/helpassistant/assistant-platform/internal/llm"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/provider"
)

// Provider is the subset of the remote AI service used by the services.
// *provider.Client implements it.
type Provider interface {
	CreateCollection(ctx context.Context, name string) (string, error)
	DeleteCollection(ctx context.Context, collectionID string) error
	UploadFile(ctx context.Context, collectionID, filename string, r io.Reader) (string, error)
	ListDocuments(ctx context.Context, collectionID string) ([]provider.RemoteDocument, error)
	DeleteDocument(ctx context.Context, collectionID, documentID string) error
	Search(ctx context.Context, collectionIDs []string, prompt string, k int) ([]provider.SearchResult, error)
	ChatCompletion(ctx context.Context, system string, messages []llm.ChatMessage) (*llm.CompletionResponse, error)
	Rephrase(ctx context.Context, text string, tone model.Tone) (string, error)
	ChatWithContext(ctx context.Context, collectionID, system string, history []llm.ChatMessage, prompt string) (*provider.ContextAnswer, error)
}

var _ Provider = (*provider.Client)(nil)
