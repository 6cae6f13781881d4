package service

import (
	"argumentor-go/internal/model"
	"argumentor-go/internal/repository"
	"argumentor-go/pkg/llm"
	"argumentor-go/pkg/tasks"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	svc     ChatService
	llm     *fakeLLM
	repo    *fakeRepo
	journal *fakeJournal
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		llm:     &fakeLLM{reply: "Regulation risks slowing innovation."},
		repo:    newFakeRepo(),
		journal: &fakeJournal{},
	}
	f.svc = NewChatService(f.llm, f.repo, repository.NewLocalTurnLocker(time.Second), f.journal, "persona")
	return f
}

func TestReplyRejectsMissingUserText(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		f := newChatFixture()
		_, err := f.svc.Reply(context.Background(), ChatRequest{UserText: text, Mode: "text", Style: "Logical"})

		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "userText is required", err.Error())
		assert.Empty(t, f.llm.calls, "no outbound call")
		assert.Zero(t, f.repo.writes, "no store write")
		assert.Empty(t, f.journal.events)
	}
}

func TestReplyRejectsInvalidSettings(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.Reply(context.Background(), ChatRequest{UserText: "hi", Mode: "video", Style: "Logical"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Reply(context.Background(), ChatRequest{UserText: "hi", Mode: "text"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.llm.calls)
}

func TestReplyCreatesSessionOnFirstTurn(t *testing.T) {
	f := newChatFixture()

	reply, err := f.svc.Reply(context.Background(), ChatRequest{
		UserText:   "AI should be regulated",
		Mode:       "voice",
		Style:      "Logical",
		Principles: []string{"Normal"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Regulation risks slowing innovation.", reply.AIText)
	require.NotEmpty(t, reply.SessionID)

	require.Len(t, f.llm.calls, 1)
	assert.Len(t, f.llm.calls[0], 3, "framework line omitted for Normal")

	stored := f.repo.get(reply.SessionID)
	require.NotNil(t, stored)
	assert.Equal(t, model.ModeVoice, stored.Mode)
	assert.Equal(t, "Logical", stored.StyleKey)
	assert.Equal(t, []string{}, stored.FrameworkKeys)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, model.SenderUser, stored.Messages[0].Sender)
	assert.Equal(t, "AI should be regulated", stored.Messages[0].Text)
	assert.Equal(t, model.SenderAI, stored.Messages[1].Sender)
	assert.Equal(t, reply.AIText, stored.Messages[1].Text)
	assert.Equal(t, 1, f.repo.writes)

	require.Len(t, f.journal.events, 1)
	assert.True(t, f.journal.events[0].Persisted)
	assert.Equal(t, reply.SessionID, f.journal.events[0].SessionID)
}

func TestReplyDefaultsModeToText(t *testing.T) {
	f := newChatFixture()

	reply, err := f.svc.Reply(context.Background(), ChatRequest{UserText: "hi", Style: "Logical"})
	require.NoError(t, err)
	assert.Equal(t, model.ModeText, f.repo.get(reply.SessionID).Mode)
}

func TestReplyIncludesFilteredFrameworks(t *testing.T) {
	f := newChatFixture()

	reply, err := f.svc.Reply(context.Background(), ChatRequest{
		UserText:   "hi",
		Mode:       "text",
		Style:      "Diplomatic",
		Principles: []string{"Normal", "Kantian", "Utilitarian"},
	})
	require.NoError(t, err)

	prompt := f.llm.calls[0]
	require.Len(t, prompt, 4)
	assert.Contains(t, prompt[2].Content, "Kantian, Utilitarian")
	assert.NotContains(t, prompt[2].Content, "Normal")
	assert.Equal(t, []string{"Kantian", "Utilitarian"}, f.repo.get(reply.SessionID).FrameworkKeys)
}

func TestReplyAppendsToExistingSession(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	first, err := f.svc.Reply(ctx, ChatRequest{UserText: "one", Mode: "text", Style: "Logical", Principles: []string{"Kantian"}})
	require.NoError(t, err)

	f.llm.reply = "second reply"
	second, err := f.svc.Reply(ctx, ChatRequest{
		UserText:   "two",
		Mode:       "voice",
		Style:      "Aggressive",
		Principles: []string{"Utilitarian"},
		SessionID:  first.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	stored := f.repo.get(first.SessionID)
	require.Len(t, stored.Messages, 4)
	assert.Equal(t, "two", stored.Messages[2].Text)
	assert.Equal(t, "second reply", stored.Messages[3].Text)
	// 已有会话的设置不被修改
	assert.Equal(t, model.ModeText, stored.Mode)
	assert.Equal(t, "Logical", stored.StyleKey)
	assert.Equal(t, []string{"Kantian"}, stored.FrameworkKeys)
	// prompt 使用本次请求的风格
	assert.Contains(t, f.llm.calls[1][1].Content, "Aggressive")
}

func TestReplyUnknownSessionCreatesNewOne(t *testing.T) {
	f := newChatFixture()

	reply, err := f.svc.Reply(context.Background(), ChatRequest{UserText: "hi", Mode: "text", Style: "Logical", SessionID: "missing"})
	require.NoError(t, err)
	assert.NotEqual(t, "missing", reply.SessionID)
	assert.Len(t, f.repo.get(reply.SessionID).Messages, 2)
}

func TestReplyUpstreamFailure(t *testing.T) {
	f := newChatFixture()
	f.llm.err = errors.Join(llm.ErrUpstream, errors.New("503"))

	_, err := f.svc.Reply(context.Background(), ChatRequest{UserText: "hi", Mode: "text", Style: "Logical"})
	require.ErrorIs(t, err, ErrUpstream)
	assert.Zero(t, f.repo.writes)
	assert.Empty(t, f.journal.events)
}

func TestReplyStoreFailureJournalsTurn(t *testing.T) {
	f := newChatFixture()
	f.repo.writeErr = errors.New("disk full")

	_, err := f.svc.Reply(context.Background(), ChatRequest{UserText: "hi", Mode: "text", Style: "Logical", Principles: []string{"Kantian"}})
	require.ErrorIs(t, err, ErrStore)

	require.Len(t, f.journal.events, 1)
	evt := f.journal.events[0]
	assert.False(t, evt.Persisted)
	assert.NotEmpty(t, evt.SessionID)
	assert.Equal(t, "hi", evt.UserText)
	assert.Equal(t, "Regulation risks slowing innovation.", evt.AIText)
	assert.Equal(t, []string{"Kantian"}, evt.FrameworkKeys)
}

func TestReplyFindFailureIsStoreError(t *testing.T) {
	f := newChatFixture()
	f.repo.findErr = errors.New("connection reset")

	_, err := f.svc.Reply(context.Background(), ChatRequest{UserText: "hi", Mode: "text", Style: "Logical", SessionID: "s1"})
	require.ErrorIs(t, err, ErrStore)
	require.Len(t, f.journal.events, 1)
	assert.Equal(t, "s1", f.journal.events[0].SessionID)
}

func TestReplySessionBusy(t *testing.T) {
	f := newChatFixture()
	svc := NewChatService(f.llm, f.repo, busyLocker{}, f.journal, "persona")

	_, err := svc.Reply(context.Background(), ChatRequest{UserText: "hi", Mode: "text", Style: "Logical", SessionID: "s1"})
	require.ErrorIs(t, err, ErrSessionBusy)
	require.Len(t, f.journal.events, 1)
	assert.Equal(t, "s1", f.journal.events[0].SessionID)
	assert.False(t, f.journal.events[0].Persisted)
}

func TestReplyConcurrentTurnsKeepPairsTogether(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	first, err := f.svc.Reply(ctx, ChatRequest{UserText: "start", Mode: "text", Style: "Logical"})
	require.NoError(t, err)

	const turns = 8
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		go func() {
			_, err := f.svc.Reply(ctx, ChatRequest{UserText: "again", Mode: "text", Style: "Logical", SessionID: first.SessionID})
			errs <- err
		}()
	}
	for i := 0; i < turns; i++ {
		require.NoError(t, <-errs)
	}

	stored := f.repo.get(first.SessionID)
	require.Len(t, stored.Messages, 2*(turns+1))
	for i := 0; i < len(stored.Messages); i += 2 {
		assert.Equal(t, model.SenderUser, stored.Messages[i].Sender)
		assert.Equal(t, model.SenderAI, stored.Messages[i+1].Sender)
	}
}

func TestReplayTurnCreatesMissingSession(t *testing.T) {
	f := newChatFixture()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	err := f.svc.ReplayTurn(context.Background(), tasks.TurnRecorded{
		SessionID:     "lost-session",
		Mode:          "text",
		StyleKey:      "Logical",
		FrameworkKeys: []string{"Kantian"},
		UserText:      "hi",
		AIText:        "hello",
		UserAt:        at,
		AIAt:          at.Add(time.Second),
	})
	require.NoError(t, err)

	stored := f.repo.get("lost-session")
	require.NotNil(t, stored)
	assert.True(t, stored.CreatedAt.Equal(at))
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, "hello", stored.Messages[1].Text)
}

func TestReplayTurnIsIdempotent(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	first, err := f.svc.Reply(ctx, ChatRequest{UserText: "start", Mode: "text", Style: "Logical"})
	require.NoError(t, err)

	at := time.Now().UTC()
	evt := tasks.TurnRecorded{SessionID: first.SessionID, UserText: "lost", AIText: "reply", UserAt: at, AIAt: at}
	require.NoError(t, f.svc.ReplayTurn(ctx, evt))
	require.NoError(t, f.svc.ReplayTurn(ctx, evt))

	stored := f.repo.get(first.SessionID)
	require.Len(t, stored.Messages, 4)
	assert.Equal(t, "lost", stored.Messages[2].Text)
	assert.Equal(t, "Logical", stored.StyleKey)
}

func TestReplayTurnSkipsPersisted(t *testing.T) {
	f := newChatFixture()
	require.NoError(t, f.svc.ReplayTurn(context.Background(), tasks.TurnRecorded{Persisted: true, UserText: "x", AIText: "y"}))
	assert.Zero(t, f.repo.writes)
}
