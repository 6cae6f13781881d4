// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 会话模式。
const (
	ModeText  = "text"
	ModeVoice = "voice"
)

// ValidMode 判断 mode 是否为受支持的会话模式。
func ValidMode(mode string) bool {
	return mode == ModeText || mode == ModeVoice
}

// DebateSession 对应于数据库中的 'debate_sessions' 表。
// 一场辩论对应一行，消息列表以 JSON 文档的形式内嵌在 messages 列中，不单独建表。
type DebateSession struct {
	// ID 由存储层在创建时分配。
	ID string `gorm:"type:varchar(36);primaryKey" json:"_id"`
	// Mode 取值 text 或 voice。
	Mode string `gorm:"type:varchar(16);not null" json:"mode"`
	// StyleKey 是自由格式的辩论风格标签，例如 "Diplomatic"。
	StyleKey string `gorm:"type:varchar(100);not null" json:"styleKey"`
	// FrameworkKeys 是按选择顺序排列的伦理框架标签，可以为空。
	FrameworkKeys []string `gorm:"type:text;serializer:json" json:"frameworkKeys"`
	// Messages 只追加，不修改、不删除。
	Messages  []Message `gorm:"type:longtext;serializer:json" json:"messages"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DebateSession) TableName() string {
	return "debate_sessions"
}

// NewDebateSession 用辩论设置构造一个尚未持久化的会话。
func NewDebateSession(mode, styleKey string, frameworkKeys []string) *DebateSession {
	keys := make([]string, len(frameworkKeys))
	copy(keys, frameworkKeys)
	return &DebateSession{
		Mode:          mode,
		StyleKey:      styleKey,
		FrameworkKeys: keys,
		Messages:      []Message{},
	}
}

// Append 按顺序把消息追加到会话末尾。
func (s *DebateSession) Append(messages ...Message) {
	s.Messages = append(s.Messages, messages...)
}

// Summary 返回不含消息正文的会话摘要。
func (s *DebateSession) Summary() SessionSummary {
	keys := s.FrameworkKeys
	if keys == nil {
		keys = []string{}
	}
	return SessionSummary{
		ID:            s.ID,
		Mode:          s.Mode,
		StyleKey:      s.StyleKey,
		FrameworkKeys: keys,
		CreatedAt:     s.CreatedAt,
	}
}

// SessionSummary 是会话列表接口返回的投影。
type SessionSummary struct {
	ID            string    `json:"_id"`
	Mode          string    `json:"mode"`
	StyleKey      string    `json:"styleKey"`
	FrameworkKeys []string  `json:"frameworkKeys"`
	CreatedAt     time.Time `json:"createdAt"`
}
