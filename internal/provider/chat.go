package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/helpassistant/assistant-platform/internal/llm"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/pkg/metrics"
)

// ContextAnswer is the result of a retrieval-augmented completion.
type ContextAnswer struct {
	Answer  string
	Sources []string
	Chunks  []SearchResult
}

// ChatCompletion runs one completion over system plus messages.
func (c *Client) ChatCompletion(ctx context.Context, system string, messages []llm.ChatMessage) (resp *llm.CompletionResponse, err error) {
	if c.completion == nil {
		return nil, &Error{Op: "chat_completion", Body: "no completion backend configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "provider.chat_completion")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.backend", c.completion.Name()),
		attribute.Int("llm.messages", len(messages)),
	)

	start := time.Now()
	status := "ok"
	defer func() {
		metrics.RecordProviderCall("chat_completion", status, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	resp, err = c.completion.Complete(ctx, &llm.CompletionRequest{
		Model:    c.llmModel,
		System:   system,
		Messages: messages,
	})
	if err != nil {
		err = completionError(ctx, err)
		if errors.Is(err, ErrTimeout) {
			status = "timeout"
		} else {
			status = "error"
		}
		return nil, err
	}

	metrics.RecordCompletion(resp.Model, resp.TokensIn, resp.TokensOut)
	return resp, nil
}

func completionError(ctx context.Context, err error) error {
	if isTimeout(ctx, err) {
		return fmt.Errorf("provider chat_completion: %w", ErrTimeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Op: "chat_completion", StatusCode: apiErr.HTTPStatusCode, Body: truncate(apiErr.Message)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Op: "chat_completion", StatusCode: reqErr.HTTPStatusCode, Body: truncate(reqErr.Error())}
	}
	return &Error{Op: "chat_completion", Body: truncate(err.Error())}
}

// Rephrase rewrites text in the given tone and returns the bare reformulation.
func (c *Client) Rephrase(ctx context.Context, text string, tone model.Tone) (string, error) {
	system := "Tu reformules des messages destinés aux usagers d'un service d'aide. " +
		"Réponds uniquement avec le texte reformulé, sans guillemets ni commentaire."
	prompt := fmt.Sprintf("Reformule le texte suivant avec un ton %s (%s), en conservant son sens et sa langue :\n\n%s",
		strings.ToLower(tone.Label("fr")), tone.Directive(), text)

	resp, err := c.ChatCompletion(ctx, system, []llm.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}

	out := CleanRephrase(resp.Content)
	if out == "" {
		return "", &Error{Op: "rephrase", StatusCode: 200, Body: "empty reformulation"}
	}
	return out, nil
}

const quoteChars = "\"'«»“”`"

// CleanRephrase strips surrounding whitespace and quote characters until the
// text no longer changes.
func CleanRephrase(s string) string {
	for {
		next := strings.TrimSpace(s)
		next = strings.Trim(next, quoteChars)
		if next == s {
			return s
		}
		s = next
	}
}

// ChatWithContext searches the collection for chunks relevant to prompt and
// answers with those chunks appended to the final user turn.
func (c *Client) ChatWithContext(ctx context.Context, collectionID, system string, history []llm.ChatMessage, prompt string) (*ContextAnswer, error) {
	results, err := c.Search(ctx, []string{collectionID}, prompt, c.topK)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	content := prompt
	if len(results) > 0 {
		parts := make([]string, 0, len(results))
		for _, r := range results {
			parts = append(parts, r.Chunk.Content)
		}
		content = prompt + "\n\nDocuments :\n\n" + strings.Join(parts, "\n\n")
	}

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.ChatMessage{Role: "user", Content: content})

	resp, err := c.ChatCompletion(ctx, system, messages)
	if err != nil {
		return nil, err
	}

	return &ContextAnswer{
		Answer:  resp.Content,
		Sources: sourceNames(results),
		Chunks:  results,
	}, nil
}

func sourceNames(results []SearchResult) []string {
	seen := make(map[string]bool, len(results))
	var names []string
	for _, r := range results {
		name := r.Chunk.DocumentName()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
