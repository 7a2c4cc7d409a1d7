// Package llm provides chat completion clients for the supported backends.
package llm

import (
	"context"
	"fmt"
	"net/http"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for chat completion backends.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the backend name.
	Name() string
}

// Backend is the type of completion backend.
type Backend string

const (
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
)

// Options configures a completion client.
type Options struct {
	Backend Backend
	APIKey  string
	// BaseURL points OpenAI-compatible clients at the retrieval provider.
	BaseURL      string
	DefaultModel string
	HTTPClient   *http.Client
}

// NewClient creates a new completion client based on the backend.
func NewClient(opts Options) (Client, error) {
	switch opts.Backend {
	case BackendOpenAI, "":
		return NewOpenAIClient(opts)
	case BackendAnthropic:
		return NewAnthropicClient(opts)
	default:
		return nil, fmt.Errorf("unknown completion backend %q", opts.Backend)
	}
}

const defaultMaxTokens = 1024
