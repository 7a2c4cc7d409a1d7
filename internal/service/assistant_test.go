package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/provider"
	"github.com/helpassistant/assistant-platform/internal/store"
)

func TestCreateAssistantDefaults(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.assistants.Create(context.Background(), env.owner, &model.AssistantRequest{
		Name:           " Support ",
		Mission:        "aider",
		OperatorName:   "Paul",
		Authorizations: []string{"can_send_email", "CAN_SEND_EMAIL"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Support", a.Name)
	assert.Equal(t, model.ToneProfessional, a.Tone)
	assert.Equal(t, []model.Authorization{model.AuthorizationSendEmail}, a.Authorizations)
	assert.True(t, strings.HasPrefix(a.OperatorPic, "https://randomuser.me/api/portraits/"))
	assert.Equal(t, env.owner.ID, a.UserID)

	_, err = env.store.GetCollectionByAssistant(context.Background(), a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "collections are never created eagerly")
}

func TestCreateAssistantValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]*model.AssistantRequest{
		"missing name":      {Mission: "m", OperatorName: "o"},
		"missing mission":   {Name: "n", OperatorName: "o"},
		"missing operator":  {Name: "n", Mission: "m"},
		"unknown tone":      {Name: "n", Mission: "m", OperatorName: "o", Tone: "SARCASTIC"},
		"unknown authority": {Name: "n", Mission: "m", OperatorName: "o", Authorizations: []string{"CAN_FLY"}},
		"bad url":           {Name: "n", Mission: "m", OperatorName: "o", URL: "ftp://example.org"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.assistants.Create(context.Background(), env.owner, req)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestAssistantOwnership(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	other := env.stranger(t)
	ctx := context.Background()

	_, err := env.assistants.Get(ctx, other.ID, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.assistants.Get(ctx, env.owner.ID, store.NewID())
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.assistants.Delete(ctx, other.ID, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.assistants.Update(ctx, other.ID, a.ID, &model.AssistantRequest{Name: "x", Mission: "y", OperatorName: "z"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateAssistant(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)

	updated, err := env.assistants.Update(context.Background(), env.owner.ID, a.ID, &model.AssistantRequest{
		Name:         "Service RH",
		Mission:      "accompagner les nouveaux arrivants",
		OperatorName: "Léa",
		Tone:         "technical",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ToneTechnical, updated.Tone)
	assert.Empty(t, updated.Authorizations)
	assert.Equal(t, a.OperatorPic, updated.OperatorPic)

	got, err := env.assistants.Get(context.Background(), env.owner.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "accompagner les nouveaux arrivants", got.Mission)
}

func TestDeleteAssistantRemovesCollectionAndFiles(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	ctx := context.Background()

	_, err := env.documents.Upload(ctx, env.owner.ID, a.ID, "guide.md", strings.NewReader("# Guide"))
	require.NoError(t, err)

	require.NoError(t, env.assistants.Delete(ctx, env.owner.ID, a.ID))

	assert.Equal(t, 1, env.provider.deleteCollCalls)
	_, err = os.Stat(filepath.Join(env.uploadDir, a.ID))
	assert.True(t, os.IsNotExist(err))
	_, err = env.assistants.Get(ctx, env.owner.ID, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAssistantAbortsWhenRemoteCollectionDeleteFails(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	ctx := context.Background()

	_, err := env.collections.GetOrCreate(ctx, a.ID)
	require.NoError(t, err)

	env.provider.deleteCollErr = &provider.Error{Op: "delete_collection", StatusCode: 503, Body: "down"}
	err = env.assistants.Delete(ctx, env.owner.ID, a.ID)
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)

	_, err = env.assistants.Get(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)
	c, err := env.collections.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, c, "local collection must survive a failed remote delete")
}
