package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helpassistant/assistant-platform/internal/events"
	"github.com/helpassistant/assistant-platform/internal/llm"
	"github.com/helpassistant/assistant-platform/internal/lock"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/provider"
	"github.com/helpassistant/assistant-platform/internal/store"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

type fakeProvider struct {
	mu sync.Mutex

	createCalls     int
	deleteCollCalls int
	uploadCalls     int
	deleteDocCalls  int
	completionCalls int
	contextCalls    int

	createDelay   time.Duration
	uploadErr     error
	deleteDocErr  error
	deleteCollErr error
	chatErr       error
	rephraseErr   error
	rephrase      func(text string, tone model.Tone) string

	remoteDocs  []provider.RemoteDocument
	answer      string
	sources     []string
	lastSystem  string
	lastHistory []llm.ChatMessage
	lastPrompt  string
	uploaded    map[string]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{answer: "Réponse de l'assistant", uploaded: map[string]string{}}
}

func (f *fakeProvider) CreateCollection(ctx context.Context, name string) (string, error) {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return fmt.Sprintf("remote-col-%d", f.createCalls), nil
}

func (f *fakeProvider) DeleteCollection(ctx context.Context, collectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCollCalls++
	return f.deleteCollErr
}

func (f *fakeProvider) UploadFile(ctx context.Context, collectionID, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	id := fmt.Sprintf("remote-doc-%d", f.uploadCalls)
	f.uploaded[id] = string(data)
	return id, nil
}

func (f *fakeProvider) ListDocuments(ctx context.Context, collectionID string) ([]provider.RemoteDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remoteDocs, nil
}

func (f *fakeProvider) DeleteDocument(ctx context.Context, collectionID, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteDocCalls++
	return f.deleteDocErr
}

func (f *fakeProvider) Search(ctx context.Context, collectionIDs []string, prompt string, k int) ([]provider.SearchResult, error) {
	return []provider.SearchResult{{
		Score: 0.8,
		Chunk: provider.Chunk{Content: "extrait", Metadata: map[string]any{"document_name": "rh.pdf"}},
	}}, nil
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, system string, messages []llm.ChatMessage) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completionCalls++
	f.lastSystem = system
	f.lastHistory = append([]llm.ChatMessage(nil), messages...)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.CompletionResponse{Content: f.answer}, nil
}

func (f *fakeProvider) Rephrase(ctx context.Context, text string, tone model.Tone) (string, error) {
	if f.rephraseErr != nil {
		return "", f.rephraseErr
	}
	if f.rephrase != nil {
		return f.rephrase(text, tone), nil
	}
	return text, nil
}

func (f *fakeProvider) ChatWithContext(ctx context.Context, collectionID, system string, history []llm.ChatMessage, prompt string) (*provider.ContextAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contextCalls++
	f.lastSystem = system
	f.lastHistory = append([]llm.ChatMessage(nil), history...)
	f.lastPrompt = prompt
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &provider.ContextAnswer{Answer: f.answer, Sources: f.sources}, nil
}

type testEnv struct {
	store       *store.Store
	provider    *fakeProvider
	assistants  *AssistantService
	collections *CollectionManager
	documents   *DocumentManager
	chats       *ChatOrchestrator
	owner       *model.User
	uploadDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open("file::memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := logger.NewNop()
	fp := newFakeProvider()
	pub := events.Nop{}
	dir := t.TempDir()

	collections := NewCollectionManager(st, fp, lock.NewLocal(), pub, log)
	env := &testEnv{
		store:       st,
		provider:    fp,
		collections: collections,
		assistants:  NewAssistantService(st, collections, dir, pub, log),
		documents:   NewDocumentManager(st, fp, collections, dir, 1<<20, pub, log),
		chats:       NewChatOrchestrator(st, fp, collections, pub, log),
		owner:       &model.User{ID: store.NewID(), Email: "owner@example.org", FullName: "Owner"},
		uploadDir:   dir,
	}
	return env
}

func (e *testEnv) newAssistant(t *testing.T) *model.Assistant {
	t.Helper()
	a, err := e.assistants.Create(context.Background(), e.owner, &model.AssistantRequest{
		Name:           "Service RH",
		Mission:        "répondre aux questions RH",
		OperatorName:   "Léa",
		Tone:           "FRIENDLY",
		Authorizations: []string{"CAN_READ_DOCUMENTS"},
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) stranger(t *testing.T) *model.User {
	t.Helper()
	u := &model.User{ID: store.NewID(), Email: "stranger@example.org", CreatedAt: time.Now().UTC()}
	require.NoError(t, e.store.EnsureUser(context.Background(), u))
	return u
}

func llmUser(content string) llm.ChatMessage {
	return llm.ChatMessage{Role: "user", Content: content}
}
