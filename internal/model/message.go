package model

import "time"

// 消息发送方，只有这两种取值。
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Message 代表会话中的一条消息，内嵌在 DebateSession 文档中。
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage 创建一条消息；at 为零值时使用当前时间。
func NewMessage(sender, text string, at time.Time) Message {
	if at.IsZero() {
		at = time.Now()
	}
	return Message{Sender: sender, Text: text, Timestamp: at.UTC()}
}
