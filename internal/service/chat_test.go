package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/provider"
	"github.com/helpassistant/assistant-platform/internal/store"
)

func TestInitChatRephrasesGreeting(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	ctx := context.Background()

	var gotTone model.Tone
	env.provider.rephrase = func(text string, tone model.Tone) string {
		gotTone = tone
		return strings.Replace(text, "Bonjour", "Coucou", 1) + " 😊"
	}

	resp, err := env.chats.InitChat(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)

	assert.Equal(t, model.ToneFriendly, gotTone)
	require.Len(t, resp.Messages, 1)
	greeting := resp.Messages[0]
	assert.Equal(t, model.EmitterAssistant, greeting.Emitter)
	assert.Equal(t, int64(1), greeting.Seq)
	assert.Contains(t, greeting.Content, "Léa")
	assert.NotEqual(t, Greeting(a), greeting.Content)
	assert.Equal(t, "Léa", resp.Assistant.OperatorName)

	history, err := env.chats.History(ctx, env.owner.ID, a.ID, resp.ChatID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, greeting.ID, history.Messages[0].ID)
}

func TestInitChatFallsBackToTemplate(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	env.provider.rephraseErr = &provider.Error{Op: "chat_completion", StatusCode: 503}

	resp, err := env.chats.InitChat(context.Background(), env.owner.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t,
		"Bonjour, je suis Léa, votre assistant Service RH. Ma mission : répondre aux questions RH. Comment puis-je vous aider ?",
		resp.Messages[0].Content)
}

func TestInitChatAccess(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	other := env.stranger(t)
	ctx := context.Background()

	_, err := env.chats.InitChat(ctx, other.ID, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.chats.InitChat(ctx, env.owner.ID, store.NewID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.chats.InitChat(ctx, store.NewID(), a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMessageWithoutCollectionUsesPlainCompletion(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	ctx := context.Background()

	chat, err := env.chats.InitChat(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)

	resp, err := env.chats.AddMessage(ctx, env.owner.ID, a.ID, chat.ChatID, "  Combien de jours de congés ?  ")
	require.NoError(t, err)

	assert.Equal(t, model.EmitterAssistant, resp.Message.Emitter)
	assert.Equal(t, int64(3), resp.Message.Seq)
	assert.Equal(t, 1, env.provider.completionCalls)
	assert.Equal(t, 0, env.provider.contextCalls)

	require.Len(t, env.provider.lastHistory, 2)
	assert.Equal(t, "assistant", env.provider.lastHistory[0].Role)
	assert.Equal(t, llmUser("Combien de jours de congés ?"), env.provider.lastHistory[1])
	assert.Contains(t, env.provider.lastSystem, "Léa")
	assert.Contains(t, env.provider.lastSystem, "répondre aux questions RH")
	assert.Contains(t, env.provider.lastSystem, model.ToneFriendly.Directive())
}

func TestAddMessageWithCollectionUsesRetrieval(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	ctx := context.Background()

	_, err := env.documents.Upload(ctx, env.owner.ID, a.ID, "rh.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	env.provider.sources = []string{"rh.pdf"}

	chat, err := env.chats.InitChat(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)

	resp, err := env.chats.AddMessage(ctx, env.owner.ID, a.ID, chat.ChatID, "Télétravail ?")
	require.NoError(t, err)

	assert.Equal(t, 1, env.provider.contextCalls)
	assert.Equal(t, "Télétravail ?", env.provider.lastPrompt)
	require.Len(t, env.provider.lastHistory, 1, "history excludes the new user message")
	assert.Equal(t, []string{"rh.pdf"}, resp.Message.Sources)

	history, err := env.chats.History(ctx, env.owner.ID, a.ID, chat.ChatID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 3)
	assert.Equal(t, []string{"rh.pdf"}, history.Messages[2].Sources)
}

func TestAddMessageKeepsUserMessageWhenProviderFails(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	ctx := context.Background()

	chat, err := env.chats.InitChat(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)

	env.provider.chatErr = &provider.Error{Op: "chat_completion", StatusCode: 502, Body: "bad gateway"}
	_, err = env.chats.AddMessage(ctx, env.owner.ID, a.ID, chat.ChatID, "Question")
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)

	history, err := env.chats.History(ctx, env.owner.ID, a.ID, chat.ChatID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	last := history.Messages[1]
	assert.Equal(t, model.EmitterUser, last.Emitter)
	assert.Equal(t, "Question", last.Content)

	// A retry answers without the question being submitted twice.
	env.provider.chatErr = nil
	_, err = env.chats.AddMessage(ctx, env.owner.ID, a.ID, chat.ChatID, "Alors ?")
	require.NoError(t, err)
	history, err = env.chats.History(ctx, env.owner.ID, a.ID, chat.ChatID)
	require.NoError(t, err)
	assert.Len(t, history.Messages, 4)
}

func TestAddMessageValidationAndAccess(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	other := env.stranger(t)
	ctx := context.Background()

	chat, err := env.chats.InitChat(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)

	_, err = env.chats.AddMessage(ctx, env.owner.ID, a.ID, chat.ChatID, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = env.chats.AddMessage(ctx, env.owner.ID, a.ID, chat.ChatID, strings.Repeat("a", maxMessageLen+1))
	assert.ErrorAs(t, err, &verr)

	_, err = env.chats.AddMessage(ctx, other.ID, a.ID, chat.ChatID, "hello")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.chats.AddMessage(ctx, env.owner.ID, a.ID, store.NewID(), "hello")
	assert.ErrorIs(t, err, ErrNotFound)

	second := env.newAssistant(t)
	_, err = env.chats.AddMessage(ctx, env.owner.ID, second.ID, chat.ChatID, "hello")
	assert.ErrorIs(t, err, ErrNotFound, "chat belongs to another assistant")

	history, err := env.chats.History(ctx, env.owner.ID, a.ID, chat.ChatID)
	require.NoError(t, err)
	assert.Len(t, history.Messages, 1, "rejected messages are never persisted")
	assert.Equal(t, 0, env.provider.completionCalls)
}

func TestListChats(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAssistant(t)
	ctx := context.Background()

	_, err := env.chats.InitChat(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)
	_, err = env.chats.InitChat(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)

	chats, err := env.chats.ListChats(ctx, env.owner.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 2)
	for _, c := range chats {
		assert.Equal(t, model.ChatStateActive, c.State)
	}
}

func TestSystemPromptMentionsAuthorizations(t *testing.T) {
	a := &model.Assistant{
		Name: "Support", OperatorName: "Paul", Mission: "aider.",
		Tone:           model.ToneTechnical,
		Authorizations: []model.Authorization{model.AuthorizationSendEmail},
	}
	p := SystemPrompt(a)
	assert.Contains(t, p, "envoyer des e-mails")
	assert.Contains(t, p, "Ta mission : aider.")
	assert.Contains(t, p, "Technique")

	a.Authorizations = nil
	assert.Contains(t, SystemPrompt(a), "aucune action")
}
