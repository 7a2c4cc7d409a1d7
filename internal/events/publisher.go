package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

const (
	// StreamName is the name of the domain event stream.
	StreamName = "HELP_ASSISTANT"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "assistant"
)

// Publisher emits domain events after state changes commit.
type Publisher interface {
	Publish(ctx context.Context, event *model.Event) error
}

// Subject returns the subject an event is published on.
func Subject(event *model.Event) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, event.AssistantID, event.Type)
}

// JetStreamPublisher publishes events to a JetStream stream.
type JetStreamPublisher struct {
	client *Client
}

// NewJetStreamPublisher creates a publisher on top of a connected client.
func NewJetStreamPublisher(client *Client) *JetStreamPublisher {
	return &JetStreamPublisher{client: client}
}

// EnsureStream ensures the event stream exists.
func (p *JetStreamPublisher) EnsureStream(ctx context.Context) error {
	if _, err := p.client.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.client.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Help assistant domain events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish publishes an event and waits for the stream acknowledgement.
func (p *JetStreamPublisher) Publish(ctx context.Context, event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.js.Publish(ctx, Subject(event), data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, *model.Event) error { return nil }

// BestEffort wraps a Publisher so that failures are logged instead of
// returned. Events are emitted after commit and must not fail the request.
type BestEffort struct {
	next Publisher
	log  *logger.Logger
}

// NewBestEffort wraps next.
func NewBestEffort(next Publisher, log *logger.Logger) *BestEffort {
	return &BestEffort{next: next, log: log}
}

// Publish forwards the event and logs a failure.
func (b *BestEffort) Publish(ctx context.Context, event *model.Event) error {
	if err := b.next.Publish(ctx, event); err != nil {
		b.log.Warn("event publish failed",
			zap.String("type", string(event.Type)),
			zap.String("assistant_id", event.AssistantID),
			zap.Error(err),
		)
	}
	return nil
}
