package service

import (
	"argumentor-go/internal/model"
	"argumentor-go/internal/repository"
	"argumentor-go/pkg/llm"
	"argumentor-go/pkg/tasks"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.DebateSession
	nextID   int
	writes   int
	writeErr error
	findErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*model.DebateSession)}
}

func cloneSession(s *model.DebateSession) *model.DebateSession {
	c := *s
	c.FrameworkKeys = append([]string{}, s.FrameworkKeys...)
	c.Messages = append([]model.Message{}, s.Messages...)
	return &c
}

func (r *fakeRepo) Create(_ context.Context, s *model.DebateSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		r.nextID++
		s.ID = fmt.Sprintf("session-%d", r.nextID)
	}
	if r.writeErr != nil {
		return r.writeErr
	}
	r.writes++
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*model.DebateSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *fakeRepo) Save(_ context.Context, s *model.DebateSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	if _, ok := r.sessions[s.ID]; !ok {
		return errors.New("save of unknown session")
	}
	r.writes++
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *fakeRepo) ListSummaries(_ context.Context) ([]model.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]model.SessionSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }

func (r *fakeRepo) get(id string) *model.DebateSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

type fakeJournal struct {
	mu     sync.Mutex
	events []tasks.TurnRecorded
}

func (j *fakeJournal) Publish(_ context.Context, evt tasks.TurnRecorded) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, evt)
	return nil
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) {
	return nil, repository.ErrLockBusy
}
