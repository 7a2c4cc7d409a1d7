// Package service implements the help assistant business logic: assistant
// configuration, collection and document lifecycle, and the chat pipeline.
package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpassistant/assistant-platform/internal/events"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/store"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

const (
	maxNameLen    = 255
	maxMissionLen = 2000
)

// AssistantService handles assistant configuration.
type AssistantService struct {
	store       *store.Store
	collections *CollectionManager
	uploadDir   string
	events      events.Publisher
	logger      *logger.Logger
}

// NewAssistantService creates a new assistant service.
func NewAssistantService(st *store.Store, collections *CollectionManager, uploadDir string, pub events.Publisher, log *logger.Logger) *AssistantService {
	return &AssistantService{
		store:       st,
		collections: collections,
		uploadDir:   uploadDir,
		events:      pub,
		logger:      log,
	}
}

// Create creates an assistant owned by owner. The owner is mirrored into the
// local users table on first use.
func (s *AssistantService) Create(ctx context.Context, owner *model.User, req *model.AssistantRequest) (*model.Assistant, error) {
	fields, err := validateAssistant(req)
	if err != nil {
		return nil, err
	}

	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now().UTC()
	}
	if err := s.store.EnsureUser(ctx, owner); err != nil {
		return nil, fmt.Errorf("register owner: %w", err)
	}

	now := time.Now().UTC()
	a := fields
	a.ID = store.NewID()
	a.UserID = owner.ID
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.OperatorPic == "" {
		a.OperatorPic = randomOperatorPic()
	}

	if err := s.store.CreateAssistant(ctx, a); err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}

	s.logger.Info("assistant created",
		zap.String("assistant_id", a.ID),
		zap.String("user_id", owner.ID),
		zap.String("tone", string(a.Tone)),
	)
	return a, nil
}

// ListMine returns the assistants owned by userID.
func (s *AssistantService) ListMine(ctx context.Context, userID string) ([]*model.Assistant, error) {
	list, err := s.store.ListAssistantsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	return list, nil
}

// Get returns an assistant owned by userID.
func (s *AssistantService) Get(ctx context.Context, userID, id string) (*model.Assistant, error) {
	return ownedAssistant(ctx, s.store, userID, id)
}

// Update replaces the editable fields of an assistant.
func (s *AssistantService) Update(ctx context.Context, userID, id string, req *model.AssistantRequest) (*model.Assistant, error) {
	fields, err := validateAssistant(req)
	if err != nil {
		return nil, err
	}

	a, err := ownedAssistant(ctx, s.store, userID, id)
	if err != nil {
		return nil, err
	}

	a.Name = fields.Name
	a.URL = fields.URL
	a.Mission = fields.Mission
	a.Description = fields.Description
	a.OperatorName = fields.OperatorName
	if fields.OperatorPic != "" {
		a.OperatorPic = fields.OperatorPic
	}
	a.Authorizations = fields.Authorizations
	a.Tone = fields.Tone
	a.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateAssistant(ctx, a); err != nil {
		return nil, notFound(err, "assistant")
	}
	return a, nil
}

// Delete removes an assistant. Its remote collection goes first; if the
// provider refuses, nothing local is deleted.
func (s *AssistantService) Delete(ctx context.Context, userID, id string) error {
	a, err := ownedAssistant(ctx, s.store, userID, id)
	if err != nil {
		return err
	}

	c, err := s.collections.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	if c != nil {
		if err := s.collections.Delete(ctx, c); err != nil {
			return err
		}
	}

	if err := s.store.DeleteAssistant(ctx, a.ID); err != nil {
		return notFound(err, "assistant")
	}

	dir := filepath.Join(s.uploadDir, a.ID)
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn("failed to remove assistant files", zap.String("dir", dir), zap.Error(err))
	}

	publish(ctx, s.events, model.EventAssistantDeleted, a.ID, "", nil)
	s.logger.Info("assistant deleted", zap.String("assistant_id", a.ID))
	return nil
}

// ownedAssistant loads an assistant and checks that userID owns it. A missing
// assistant is ErrNotFound, a foreign one is ErrForbidden.
func ownedAssistant(ctx context.Context, st *store.Store, userID, id string) (*model.Assistant, error) {
	a, err := st.GetAssistant(ctx, id)
	if err != nil {
		return nil, notFound(err, "assistant")
	}
	if !a.OwnedBy(userID) {
		return nil, fmt.Errorf("assistant %s: %w", id, ErrForbidden)
	}
	return a, nil
}

func validateAssistant(req *model.AssistantRequest) (*model.Assistant, error) {
	if req == nil {
		return nil, invalid("", "request body is required")
	}

	a := &model.Assistant{
		Name:         strings.TrimSpace(req.Name),
		URL:          strings.TrimSpace(req.URL),
		Mission:      strings.TrimSpace(req.Mission),
		Description:  strings.TrimSpace(req.Description),
		OperatorName: strings.TrimSpace(req.OperatorName),
		OperatorPic:  strings.TrimSpace(req.OperatorPic),
		Tone:         model.DefaultTone,
	}

	switch {
	case a.Name == "":
		return nil, invalid("name", "is required")
	case len(a.Name) > maxNameLen:
		return nil, invalid("name", "must be at most %d characters", maxNameLen)
	case a.Mission == "":
		return nil, invalid("mission", "is required")
	case len(a.Mission) > maxMissionLen:
		return nil, invalid("mission", "must be at most %d characters", maxMissionLen)
	case a.OperatorName == "":
		return nil, invalid("operator_name", "is required")
	case len(a.OperatorName) > maxNameLen:
		return nil, invalid("operator_name", "must be at most %d characters", maxNameLen)
	}

	if a.URL != "" && !isHTTPURL(a.URL) {
		return nil, invalid("url", "must be an http or https URL")
	}
	if a.OperatorPic != "" && !isHTTPURL(a.OperatorPic) {
		return nil, invalid("operator_pic", "must be an http or https URL")
	}

	if strings.TrimSpace(req.Tone) != "" {
		tone, err := model.ParseTone(req.Tone)
		if err != nil {
			return nil, invalid("tone", "%v", err)
		}
		a.Tone = tone
	}

	seen := make(map[model.Authorization]bool, len(req.Authorizations))
	a.Authorizations = make([]model.Authorization, 0, len(req.Authorizations))
	for _, raw := range req.Authorizations {
		auth, err := model.ParseAuthorization(raw)
		if err != nil {
			return nil, invalid("authorizations", "%v", err)
		}
		if !seen[auth] {
			seen[auth] = true
			a.Authorizations = append(a.Authorizations, auth)
		}
	}

	return a, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func randomOperatorPic() string {
	gender := "men"
	if rand.IntN(2) == 1 {
		gender = "women"
	}
	return fmt.Sprintf("https://randomuser.me/api/portraits/%s/%d.jpg", gender, rand.IntN(100))
}

func publish(ctx context.Context, pub events.Publisher, typ model.EventType, assistantID, chatID string, data map[string]any) {
	if pub == nil {
		return
	}
	_ = pub.Publish(ctx, &model.Event{
		ID:          store.NewID(),
		Type:        typ,
		AssistantID: assistantID,
		ChatID:      chatID,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	})
}
