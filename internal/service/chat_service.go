// Package service 包含了应用的业务逻辑层。
package service

import (
	"argumentor-go/internal/model"
	"argumentor-go/internal/repository"
	"argumentor-go/pkg/llm"
	"argumentor-go/pkg/log"
	"argumentor-go/pkg/tasks"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// 发布对话日志的超时时间，与请求上下文无关。
const journalTimeout = 5 * time.Second

// ChatRequest 是一轮对话的输入。
type ChatRequest struct {
	UserText   string
	Mode       string
	Style      string
	Principles []string
	// SessionID 为空或查不到时创建新会话。
	SessionID string
}

// ChatReply 是一轮对话的输出。
type ChatReply struct {
	AIText    string `json:"aiText"`
	SessionID string `json:"sessionId"`
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	// Reply 处理一轮对话：校验 -> 组装 prompt -> 调用补全服务 -> 查找或创建会话 -> 追加消息并保存。
	Reply(ctx context.Context, req ChatRequest) (*ChatReply, error)
	// ReplayTurn 把对话日志中未持久化的轮次补写回会话。
	ReplayTurn(ctx context.Context, evt tasks.TurnRecorded) error
}

type chatService struct {
	llmClient     llm.Client
	sessionRepo   repository.SessionRepository
	locker        repository.TurnLocker
	journal       TurnJournal
	personaPrompt string
	now           func() time.Time
}

// NewChatService 创建一个新的 ChatService 实例。journal 可以为 nil。
func NewChatService(llmClient llm.Client, sessionRepo repository.SessionRepository, locker repository.TurnLocker, journal TurnJournal, personaPrompt string) ChatService {
	return &chatService{
		llmClient:     llmClient,
		sessionRepo:   sessionRepo,
		locker:        locker,
		journal:       journal,
		personaPrompt: personaPrompt,
		now:           time.Now,
	}
}

type debateSettings struct {
	mode       string
	style      string
	frameworks []string
}

func (s *chatService) Reply(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	settings, err := validateChatRequest(req)
	if err != nil {
		return nil, err
	}

	// 1. 组装 prompt 并调用补全服务
	userAt := s.now()
	messages := BuildPrompt(s.personaPrompt, settings.style, settings.frameworks, req.UserText)
	aiText, err := s.llmClient.Complete(ctx, messages)
	if err != nil {
		log.Errorw("completion failed", "sessionId", req.SessionID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	aiAt := s.now()

	// 2. 查找或创建会话，追加 user 和 ai 两条消息并保存
	turn := []model.Message{
		model.NewMessage(model.SenderUser, req.UserText, userAt),
		model.NewMessage(model.SenderAI, aiText, aiAt),
	}
	session, persistErr := s.persistTurn(ctx, req.SessionID, settings, turn)

	// 3. 无论保存成功与否都写入对话日志，保存失败的轮次由消费者补写
	evt := tasks.TurnRecorded{
		SessionID:     req.SessionID,
		Mode:          settings.mode,
		StyleKey:      settings.style,
		FrameworkKeys: settings.frameworks,
		UserText:      req.UserText,
		AIText:        aiText,
		UserAt:        turn[0].Timestamp,
		AIAt:          turn[1].Timestamp,
		Persisted:     persistErr == nil,
	}
	if session != nil {
		evt.SessionID = session.ID
		evt.Mode = session.Mode
		evt.StyleKey = session.StyleKey
		evt.FrameworkKeys = session.FrameworkKeys
	}
	s.record(evt)

	if persistErr != nil {
		log.Errorw("failed to persist turn", "sessionId", evt.SessionID, "error", persistErr)
		return nil, persistErr
	}

	log.Infow("turn completed", "sessionId", session.ID, "messages", len(session.Messages))
	return &ChatReply{AIText: aiText, SessionID: session.ID}, nil
}

func validateChatRequest(req ChatRequest) (debateSettings, error) {
	if strings.TrimSpace(req.UserText) == "" {
		return debateSettings{}, NewValidationError("userText is required")
	}

	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = model.ModeText
	}
	if !model.ValidMode(mode) {
		return debateSettings{}, NewValidationError(fmt.Sprintf("mode must be %q or %q", model.ModeText, model.ModeVoice))
	}

	style := strings.TrimSpace(req.Style)
	if style == "" {
		return debateSettings{}, NewValidationError("style is required")
	}

	return debateSettings{
		mode:       mode,
		style:      style,
		frameworks: FilterPrinciples(req.Principles),
	}, nil
}

// persistTurn 执行显式的 find-or-create：sessionID 为空或查找未命中时新建会话。
// 已有会话的 mode/style/frameworks 保持不变。返回的 session 在保存失败时也可能非空（ID 已分配）。
func (s *chatService) persistTurn(ctx context.Context, sessionID string, settings debateSettings, turn []model.Message) (*model.DebateSession, error) {
	if sessionID != "" {
		unlock, err := s.locker.Lock(ctx, sessionID)
		if errors.Is(err, repository.ErrLockBusy) {
			return nil, ErrSessionBusy
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		defer unlock()

		session, err := s.sessionRepo.FindByID(ctx, sessionID)
		switch {
		case err == nil:
			session.Append(turn...)
			if err := s.sessionRepo.Save(ctx, session); err != nil {
				return session, fmt.Errorf("%w: %w", ErrStore, err)
			}
			return session, nil
		case errors.Is(err, repository.ErrNotFound):
			log.Warnf("session %s not found, creating a new one", sessionID)
		default:
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
	}

	session := model.NewDebateSession(settings.mode, settings.style, settings.frameworks)
	session.CreatedAt = turn[0].Timestamp
	session.Append(turn...)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return session, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return session, nil
}

func (s *chatService) record(evt tasks.TurnRecorded) {
	if s.journal == nil {
		return
	}
	// 使用后台上下文，即使原始请求被取消也要记录已生成的回复
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := s.journal.Publish(ctx, evt); err != nil {
		log.Errorw("failed to publish turn event", "sessionId", evt.SessionID, "persisted", evt.Persisted, "error", err)
	}
}

func (s *chatService) ReplayTurn(ctx context.Context, evt tasks.TurnRecorded) error {
	if evt.Persisted {
		return nil
	}
	turn := []model.Message{
		model.NewMessage(model.SenderUser, evt.UserText, evt.UserAt),
		model.NewMessage(model.SenderAI, evt.AIText, evt.AIAt),
	}

	if evt.SessionID != "" {
		unlock, err := s.locker.Lock(ctx, evt.SessionID)
		if err != nil {
			return fmt.Errorf("failed to lock session %s: %w", evt.SessionID, err)
		}
		defer unlock()

		session, err := s.sessionRepo.FindByID(ctx, evt.SessionID)
		if err == nil {
			if containsTurn(session.Messages, turn) {
				return nil
			}
			session.Append(turn...)
			return s.sessionRepo.Save(ctx, session)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	session := model.NewDebateSession(evt.Mode, evt.StyleKey, evt.FrameworkKeys)
	session.ID = evt.SessionID
	session.CreatedAt = turn[0].Timestamp
	session.Append(turn...)
	return s.sessionRepo.Create(ctx, session)
}

// containsTurn 判断该轮次是否已经写入过，保证重放幂等。
func containsTurn(history, turn []model.Message) bool {
	for i := 0; i+len(turn) <= len(history); i++ {
		matched := true
		for j, m := range turn {
			h := history[i+j]
			if h.Sender != m.Sender || h.Text != m.Text || !h.Timestamp.Equal(m.Timestamp) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
