// Package provider is the client for the remote AI service that hosts
// retrieval collections, semantic search and chat completion.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/helpassistant/assistant-platform/internal/llm"
	"github.com/helpassistant/assistant-platform/pkg/metrics"
)

const (
	defaultTimeout = 60 * time.Second
	defaultTopK    = 6
)

// Options configures a Client.
type Options struct {
	BaseURL         string
	APIKey          string
	EmbeddingsModel string
	LLMModel        string
	Timeout         time.Duration
	SearchTopK      int
	HTTPClient      *http.Client
	Completion      llm.Client
}

// Client is a stateless client for the provider API.
type Client struct {
	baseURL         string
	apiKey          string
	embeddingsModel string
	llmModel        string
	timeout         time.Duration
	topK            int
	httpClient      *http.Client
	completion      llm.Client
	tracer          trace.Tracer
}

// New creates a new provider client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	topK := opts.SearchTopK
	if topK <= 0 {
		topK = defaultTopK
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/") + "/v1",
		apiKey:          opts.APIKey,
		embeddingsModel: opts.EmbeddingsModel,
		llmModel:        opts.LLMModel,
		timeout:         timeout,
		topK:            topK,
		httpClient:      httpClient,
		completion:      opts.Completion,
		tracer:          otel.Tracer("provider"),
	}
}

// RemoteDocument is a document as listed by the provider.
type RemoteDocument struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Collection string `json:"collection,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}

// Chunk is a piece of an ingested document.
type Chunk struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// DocumentName returns the source document name from the chunk metadata.
func (c Chunk) DocumentName() string {
	if name, ok := c.Metadata["document_name"].(string); ok {
		return name
	}
	return ""
}

// SearchResult is one ranked chunk returned by a semantic search.
type SearchResult struct {
	Score float64 `json:"score"`
	Chunk Chunk   `json:"chunk"`
}

type idResponse struct {
	ID json.RawMessage `json:"id"`
}

// value accepts both string and numeric identifiers.
func (r idResponse) value() string {
	var s string
	if err := json.Unmarshal(r.ID, &s); err == nil {
		return s
	}
	return strings.Trim(string(r.ID), `"`)
}

// CreateCollection creates a retrieval collection and returns its remote id.
func (c *Client) CreateCollection(ctx context.Context, name string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"name":  name,
		"model": c.embeddingsModel,
	})
	if err != nil {
		return "", err
	}

	var resp idResponse
	if err := c.do(ctx, "create_collection", http.MethodPost, "/collections", bytes.NewReader(body), "application/json", &resp); err != nil {
		return "", err
	}
	id := resp.value()
	if id == "" {
		return "", &Error{Op: "create_collection", StatusCode: http.StatusOK, Body: "response carries no collection id"}
	}
	return id, nil
}

// DeleteCollection deletes a retrieval collection.
func (c *Client) DeleteCollection(ctx context.Context, collectionID string) error {
	return c.do(ctx, "delete_collection", http.MethodDelete, "/collections/"+url.PathEscape(collectionID), nil, "", nil)
}

// UploadFile pushes a file into a collection and returns the provider's
// document id.
func (c *Client) UploadFile(ctx context.Context, collectionID, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	request, err := json.Marshal(map[string]string{"collection": collectionID})
	if err != nil {
		return "", err
	}
	if err := w.WriteField("request", string(request)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var resp idResponse
	if err := c.do(ctx, "upload_file", http.MethodPost, "/files", &buf, w.FormDataContentType(), &resp); err != nil {
		return "", err
	}
	id := resp.value()
	if id == "" {
		return "", &Error{Op: "upload_file", StatusCode: http.StatusOK, Body: "response carries no document id"}
	}
	return id, nil
}

// ListDocuments lists the documents ingested in a collection.
func (c *Client) ListDocuments(ctx context.Context, collectionID string) ([]RemoteDocument, error) {
	var resp struct {
		Data []RemoteDocument `json:"data"`
	}
	if err := c.do(ctx, "list_documents", http.MethodGet, "/documents/"+url.PathEscape(collectionID), nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DeleteDocument removes a document from a collection.
func (c *Client) DeleteDocument(ctx context.Context, collectionID, documentID string) error {
	path := "/documents/" + url.PathEscape(collectionID) + "/" + url.PathEscape(documentID)
	return c.do(ctx, "delete_document", http.MethodDelete, path, nil, "", nil)
}

// Search runs a semantic search over the given collections. A k of zero uses
// the configured default.
func (c *Client) Search(ctx context.Context, collectionIDs []string, prompt string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = c.topK
	}
	body, err := json.Marshal(map[string]any{
		"prompt":      prompt,
		"collections": collectionIDs,
		"k":           k,
		"method":      "semantic",
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []SearchResult `json:"data"`
	}
	if err := c.do(ctx, "search", http.MethodPost, "/search", bytes.NewReader(body), "application/json", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// do performs one bounded, traced and timed request. A nil out discards the body.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "provider."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("provider.path", path),
	))
	defer span.End()

	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordProviderCall(op, status, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			status = "timeout"
			return fmt.Errorf("provider %s: %w", op, ErrTimeout)
		}
		return &Error{Op: op, Body: err.Error()}
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			status = "timeout"
			return fmt.Errorf("provider %s: %w", op, ErrTimeout)
		}
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: "decode response: " + err.Error()}
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
