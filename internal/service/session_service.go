package service

import (
	"argumentor-go/internal/model"
	"argumentor-go/internal/repository"
	"context"
	"errors"
	"fmt"
)

// SessionService 定义了会话只读查询的接口。
type SessionService interface {
	ListSessions(ctx context.Context) ([]model.SessionSummary, error)
	GetMessages(ctx context.Context, sessionID string) ([]model.Message, error)
}

type sessionService struct {
	repo repository.SessionRepository
}

// NewSessionService 创建一个新的 SessionService。
func NewSessionService(repo repository.SessionRepository) SessionService {
	return &sessionService{repo: repo}
}

// ListSessions 按创建时间倒序返回所有会话摘要，不含消息正文。
func (s *sessionService) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	summaries, err := s.repo.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return summaries, nil
}

// GetMessages 返回会话的完整消息列表。
func (s *sessionService) GetMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return session.Messages, nil
}
