package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpassistant/assistant-platform/internal/llm"
	"github.com/helpassistant/assistant-platform/internal/model"
)

type recordingLLM struct {
	reqs  []*llm.CompletionRequest
	reply string
	err   error
}

func (f *recordingLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply, Model: "test"}, nil
}

func (f *recordingLLM) Name() string { return "fake" }

func newTestClient(t *testing.T, h http.HandlerFunc, completion llm.Client) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:         srv.URL,
		APIKey:          "key",
		EmbeddingsModel: "embed",
		Timeout:         time.Second,
		SearchTopK:      3,
		Completion:      completion,
	})
}

func TestCreateCollection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/collections", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "assistant_a1_collection", body["name"])
		assert.Equal(t, "embed", body["model"])

		_, _ = w.Write([]byte(`{"id": 42}`))
	}, nil)

	id, err := c.CreateCollection(context.Background(), "assistant_a1_collection")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestUploadFileSendsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.JSONEq(t, `{"collection":"col-1"}`, r.FormValue("request"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "guide.md", hdr.Filename)
		assert.Equal(t, "# Guide", string(data))

		_, _ = w.Write([]byte(`{"id":"doc-9"}`))
	}, nil)

	id, err := c.UploadFile(context.Background(), "col-1", "guide.md", strings.NewReader("# Guide"))
	require.NoError(t, err)
	assert.Equal(t, "doc-9", id)
}

func TestNonSuccessStatusIsTypedError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"bad collection"}`))
	}, nil)

	err := c.DeleteCollection(context.Background(), "col-1")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
	assert.Equal(t, "delete_collection", perr.Op)
	assert.Contains(t, perr.Body, "bad collection")
}

func TestSlowProviderTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.ListDocuments(context.Background(), "col-1")
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestChatWithContextAppendsDocuments(t *testing.T) {
	fake := &recordingLLM{reply: "Voici la réponse"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "semantic", body["method"])
		assert.EqualValues(t, 3, body["k"])

		_, _ = w.Write([]byte(`{"data":[
			{"score":0.4,"chunk":{"id":"c2","content":"Congés: 25 jours","metadata":{"document_name":"rh.pdf"}}},
			{"score":0.9,"chunk":{"id":"c1","content":"Télétravail: 2 jours","metadata":{"document_name":"charte.md"}}},
			{"score":0.2,"chunk":{"id":"c3","content":"Congés: pose","metadata":{"document_name":"rh.pdf"}}}
		]}`))
	}, fake)

	history := []llm.ChatMessage{{Role: "assistant", Content: "Bonjour"}}
	answer, err := c.ChatWithContext(context.Background(), "col-1", "system", history, "Combien de jours ?")
	require.NoError(t, err)

	assert.Equal(t, "Voici la réponse", answer.Answer)
	assert.Equal(t, []string{"charte.md", "rh.pdf"}, answer.Sources)
	require.Len(t, fake.reqs, 1)

	req := fake.reqs[0]
	assert.Equal(t, "system", req.System)
	require.Len(t, req.Messages, 2)
	last := req.Messages[1]
	assert.Equal(t, "user", last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "Combien de jours ?"))
	assert.Less(t, strings.Index(last.Content, "Télétravail"), strings.Index(last.Content, "Congés: 25"))
}

func TestRephraseStripsQuotes(t *testing.T) {
	fake := &recordingLLM{reply: "  « \"Salut ! Je suis Léa.\" »\n"}
	c := New(Options{BaseURL: "http://unused", Completion: fake})

	out, err := c.Rephrase(context.Background(), "Bonjour, je suis Léa.", model.ToneFriendly)
	require.NoError(t, err)
	assert.Equal(t, "Salut ! Je suis Léa.", out)
	assert.Contains(t, fake.reqs[0].Messages[0].Content, "amical")
}

func TestRephraseFailureIsTyped(t *testing.T) {
	fake := &recordingLLM{err: errors.New("connection refused")}
	c := New(Options{BaseURL: "http://unused", Completion: fake})

	_, err := c.Rephrase(context.Background(), "Bonjour", model.ToneCasual)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "chat_completion", perr.Op)
}

func TestCleanRephrase(t *testing.T) {
	cases := map[string]string{
		"plain":                "plain",
		"  `'“nested”'`  ":     "nested",
		"l'équipe":             "l'équipe",
		"\"\"":                 "",
		" « Bonjour » \n":      "Bonjour",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanRephrase(in), in)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", maxErrorBody-1) + "é" + strings.Repeat("b", 10)

	out := truncate(body)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("a", maxErrorBody-1)+"...", out)

	assert.Equal(t, "court", truncate("court"))
}
