// Package repository 提供了数据访问层的实现。
package repository

import (
	"argumentor-go/internal/model"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound 表示按 ID 查找的会话不存在。
var ErrNotFound = errors.New("record not found")

// SessionRepository 定义了辩论会话的持久化操作。
// 它独占会话与消息的持久化记录，调用方只在一次请求内持有内存中的副本。
type SessionRepository interface {
	Create(ctx context.Context, session *model.DebateSession) error
	FindByID(ctx context.Context, id string) (*model.DebateSession, error)
	Save(ctx context.Context, session *model.DebateSession) error
	ListSummaries(ctx context.Context) ([]model.SessionSummary, error)
	Ping(ctx context.Context) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// AutoMigrate 创建或更新会话表结构。
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.DebateSession{}); err != nil {
		return fmt.Errorf("failed to migrate debate_sessions: %w", err)
	}
	return nil
}

// Create 为会话分配 ID（若为空）并插入一条新记录。
// 即使插入失败，session.ID 也已被赋值。
func (r *sessionRepository) Create(ctx context.Context, session *model.DebateSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.FrameworkKeys == nil {
		session.FrameworkKeys = []string{}
	}
	if session.Messages == nil {
		session.Messages = []model.Message{}
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session %s: %w", session.ID, err)
	}
	return nil
}

// FindByID 根据 ID 查找会话，不存在时返回 ErrNotFound。
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.DebateSession, error) {
	var session model.DebateSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session %s: %w", id, err)
	}
	if session.Messages == nil {
		session.Messages = []model.Message{}
	}
	return &session, nil
}

// Save 将整个会话文档（包括内嵌消息）写回数据库。
func (r *sessionRepository) Save(ctx context.Context, session *model.DebateSession) error {
	err := r.db.WithContext(ctx).
		Model(&model.DebateSession{}).
		Where("id = ?", session.ID).
		Select("mode", "style_key", "framework_keys", "messages").
		Updates(session).Error
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// ListSummaries 按创建时间倒序返回所有会话摘要，不读取 messages 列。
func (r *sessionRepository) ListSummaries(ctx context.Context) ([]model.SessionSummary, error) {
	var sessions []model.DebateSession
	err := r.db.WithContext(ctx).
		Select("id", "mode", "style_key", "framework_keys", "created_at").
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, sessions[i].Summary())
	}
	return summaries, nil
}

// Ping 检查底层数据库连接是否可用。
func (r *sessionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
