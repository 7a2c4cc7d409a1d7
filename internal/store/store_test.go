package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpassistant/assistant-platform/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAssistant(t *testing.T, s *Store) *model.Assistant {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	user := &model.User{ID: NewID(), Email: NewID() + "@example.org", CreatedAt: now}
	require.NoError(t, s.CreateUser(ctx, user))

	a := &model.Assistant{
		ID:             NewID(),
		UserID:         user.ID,
		Name:           "RH",
		Mission:        "répondre aux questions RH",
		OperatorName:   "Léa",
		Authorizations: []model.Authorization{model.AuthorizationReadDocuments},
		Tone:           model.ToneFriendly,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.CreateAssistant(ctx, a))
	return a
}

func TestAssistantRoundTrip(t *testing.T) {
	s := newTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	got, err := s.GetAssistant(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Authorization{model.AuthorizationReadDocuments}, got.Authorizations)
	assert.Equal(t, model.ToneFriendly, got.Tone)

	got.Tone = model.ToneTechnical
	got.Authorizations = nil
	require.NoError(t, s.UpdateAssistant(ctx, got))

	got, err = s.GetAssistant(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ToneTechnical, got.Tone)
	assert.Empty(t, got.Authorizations)

	_, err = s.GetAssistant(ctx, NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSecondCollectionForAssistantIsDuplicate(t *testing.T) {
	s := newTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	first := &model.Collection{ID: NewID(), AssistantID: a.ID, RemoteID: "1", Name: model.CollectionName(a.ID), CreatedAt: time.Now()}
	require.NoError(t, s.CreateCollection(ctx, first))

	second := &model.Collection{ID: NewID(), AssistantID: a.ID, RemoteID: "2", Name: model.CollectionName(a.ID), CreatedAt: time.Now()}
	err := s.CreateCollection(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetCollectionByAssistant(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", got.RemoteID)
}

func TestAppendMessageAssignsSequence(t *testing.T) {
	s := newTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, a.ID, a.UserID)
	require.NoError(t, err)

	first, err := s.AppendMessage(ctx, chat.ID, model.EmitterAssistant, "Bonjour", nil)
	require.NoError(t, err)
	second, err := s.AppendMessage(ctx, chat.ID, model.EmitterUser, "Salut", nil)
	require.NoError(t, err)
	third, err := s.AppendMessage(ctx, chat.ID, model.EmitterAssistant, "Réponse", []string{"rh.pdf"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, int64(3), third.Seq)

	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"rh.pdf"}, msgs[2].Sources)

	_, err = s.AppendMessage(ctx, NewID(), model.EmitterUser, "orphan", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAppendsKeepInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, a.ID, a.UserID)
	require.NoError(t, err)

	const writers, perWriter = 8, 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.AppendMessage(ctx, chat.ID, model.EmitterUser, fmt.Sprintf("%d:%d", w, i), nil)
				if !assert.NoError(t, err) {
					return
				}
			}
		}(w)
	}
	wg.Wait()

	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, writers*perWriter)

	next := make(map[int]int, writers)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)

		var w, n int
		_, err := fmt.Sscanf(m.Content, "%d:%d", &w, &n)
		require.NoError(t, err)
		assert.Equal(t, next[w], n, "writer %d out of order", w)
		next[w] = n + 1
	}

	again, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, msgs, again)
}

func TestDeleteDocumentRollsBackWhenFileRemovalFails(t *testing.T) {
	s := newTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	doc := &model.Document{
		ID: NewID(), AssistantID: a.ID, Filename: "a.txt", StoredName: "x_a.txt",
		FileType: ".txt", FileSize: 3, FilePath: "/tmp/x_a.txt", UploadedAt: time.Now(),
	}
	require.NoError(t, s.CreateDocument(ctx, doc))

	boom := errors.New("disk busy")
	err := s.DeleteDocument(ctx, doc.ID, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = s.GetDocument(ctx, a.ID, doc.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, doc.ID, func() error { return nil }))
	_, err = s.GetDocument(ctx, a.ID, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAssistantCascades(t *testing.T) {
	s := newTestStore(t)
	a := seedAssistant(t, s)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, a.ID, a.UserID)
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, chat.ID, model.EmitterUser, "x", nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateCollection(ctx, &model.Collection{ID: NewID(), AssistantID: a.ID, RemoteID: "1", Name: "c", CreatedAt: time.Now()}))

	require.NoError(t, s.DeleteAssistant(ctx, a.ID))

	_, err = s.GetChat(ctx, chat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetCollectionByAssistant(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{ID: NewID(), Email: "lea@example.org", FullName: "Léa", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.EnsureUser(ctx, u))
	require.NoError(t, s.EnsureUser(ctx, &model.User{ID: u.ID, Email: "lea@example.org", FullName: "Other", CreatedAt: time.Now().UTC()}))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Léa", got.FullName)
}
