package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/helpassistant/assistant-platform/internal/events"
	"github.com/helpassistant/assistant-platform/internal/lock"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/provider"
	"github.com/helpassistant/assistant-platform/internal/store"
	"github.com/helpassistant/assistant-platform/pkg/logger"
	"github.com/helpassistant/assistant-platform/pkg/metrics"
)

const (
	maxSearchK = 50

	// createTimeout bounds a shared collection creation, which outlives the
	// request that started it.
	createTimeout = 2 * time.Minute
)

// CollectionManager keeps exactly one remote collection per assistant.
type CollectionManager struct {
	store    *store.Store
	provider Provider
	locker   lock.Locker
	group    singleflight.Group
	events   events.Publisher
	logger   *logger.Logger
}

// NewCollectionManager creates a new collection manager.
func NewCollectionManager(st *store.Store, p Provider, locker lock.Locker, pub events.Publisher, log *logger.Logger) *CollectionManager {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &CollectionManager{
		store:    st,
		provider: p,
		locker:   locker,
		events:   pub,
		logger:   log,
	}
}

// Get returns the collection of an assistant, or nil if it has none.
func (m *CollectionManager) Get(ctx context.Context, assistantID string) (*model.Collection, error) {
	c, err := m.store.GetCollectionByAssistant(ctx, assistantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return c, nil
}

// GetOrCreate returns the collection of an assistant, creating it on the
// provider first if needed.
func (m *CollectionManager) GetOrCreate(ctx context.Context, assistantID string) (*model.Collection, error) {
	c, err := m.Get(ctx, assistantID)
	if err != nil || c != nil {
		return c, err
	}

	ch := m.group.DoChan(assistantID, func() (any, error) {
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createTimeout)
		defer cancel()
		return m.create(createCtx, assistantID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Collection), nil
	}
}

func (m *CollectionManager) create(ctx context.Context, assistantID string) (*model.Collection, error) {
	unlock, err := m.locker.Lock(ctx, "collection:"+assistantID)
	if err != nil {
		return nil, fmt.Errorf("lock collection: %w", err)
	}
	defer unlock()

	// Another process may have won while we waited.
	if c, err := m.Get(ctx, assistantID); err != nil || c != nil {
		return c, err
	}

	name := model.CollectionName(assistantID)
	remoteID, err := m.provider.CreateCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create remote collection: %w", err)
	}

	c := &model.Collection{
		ID:          store.NewID(),
		AssistantID: assistantID,
		RemoteID:    remoteID,
		Name:        name,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.store.CreateCollection(ctx, c); err != nil {
		m.compensate(ctx, remoteID)
		if errors.Is(err, store.ErrDuplicate) {
			winner, lookupErr := m.store.GetCollectionByAssistant(ctx, assistantID)
			if lookupErr != nil {
				return nil, fmt.Errorf("load collection after conflict: %w", lookupErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("save collection: %w", err)
	}

	metrics.CollectionsTotal.WithLabelValues("create").Inc()
	publish(ctx, m.events, model.EventCollectionCreated, assistantID, "", map[string]any{"remote_id": remoteID})
	m.logger.Info("collection created",
		zap.String("assistant_id", assistantID),
		zap.String("remote_id", remoteID),
	)
	return c, nil
}

// compensate drops a remote collection whose local record could not be saved.
func (m *CollectionManager) compensate(ctx context.Context, remoteID string) {
	if err := m.provider.DeleteCollection(context.WithoutCancel(ctx), remoteID); err != nil {
		m.logger.Error("failed to delete orphaned remote collection",
			zap.String("remote_id", remoteID),
			zap.Error(err),
		)
		return
	}
	metrics.CollectionsTotal.WithLabelValues("compensate").Inc()
}

// Delete removes the remote collection, then the local record. A remote
// failure keeps the local record and is returned. A collection the provider
// no longer knows is treated as already deleted.
func (m *CollectionManager) Delete(ctx context.Context, c *model.Collection) error {
	if err := m.provider.DeleteCollection(ctx, c.RemoteID); err != nil {
		var perr *provider.Error
		if !errors.As(err, &perr) || perr.StatusCode != http.StatusNotFound {
			return fmt.Errorf("delete remote collection: %w", err)
		}
		m.logger.Warn("remote collection already gone", zap.String("remote_id", c.RemoteID))
	}

	if err := m.store.DeleteCollection(ctx, c.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete collection: %w", err)
	}

	metrics.CollectionsTotal.WithLabelValues("delete").Inc()
	publish(ctx, m.events, model.EventCollectionDeleted, c.AssistantID, "", map[string]any{"remote_id": c.RemoteID})
	return nil
}

// ForAssistant returns the collection of an assistant owned by userID,
// creating it lazily.
func (m *CollectionManager) ForAssistant(ctx context.Context, userID, assistantID string) (*model.Collection, error) {
	if _, err := ownedAssistant(ctx, m.store, userID, assistantID); err != nil {
		return nil, err
	}
	return m.GetOrCreate(ctx, assistantID)
}

// Search runs an ad hoc semantic search over an assistant's collection. An
// assistant without a collection has no results.
func (m *CollectionManager) Search(ctx context.Context, userID, assistantID string, req *model.SearchRequest) (*model.SearchResponse, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, invalid("prompt", "is required")
	}
	if req.K < 0 || req.K > maxSearchK {
		return nil, invalid("k", "must be between 1 and %d", maxSearchK)
	}

	if _, err := ownedAssistant(ctx, m.store, userID, assistantID); err != nil {
		return nil, err
	}

	resp := &model.SearchResponse{Results: []model.SearchHit{}}
	c, err := m.Get(ctx, assistantID)
	if err != nil || c == nil {
		return resp, err
	}

	results, err := m.provider.Search(ctx, []string{c.RemoteID}, req.Prompt, req.K)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		resp.Results = append(resp.Results, model.SearchHit{
			Content:      r.Chunk.Content,
			DocumentName: r.Chunk.DocumentName(),
			Score:        r.Score,
			Metadata:     stringMetadata(r.Chunk.Metadata),
		})
	}
	return resp, nil
}

func stringMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}
