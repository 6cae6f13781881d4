package service

import (
	"argumentor-go/pkg/log"
	"argumentor-go/pkg/tasks"
	"context"
)

// TurnJournal 记录每一轮成功生成的回复，由 kafka.TurnProducer 或 logJournal 实现。
type TurnJournal interface {
	Publish(ctx context.Context, evt tasks.TurnRecorded) error
}

type logJournal struct{}

// NewLogJournal 返回只写日志的 TurnJournal，未配置 Kafka 时使用。
// 未持久化的轮次会以 warn 级别完整输出，便于人工补录。
func NewLogJournal() TurnJournal {
	return logJournal{}
}

func (logJournal) Publish(_ context.Context, evt tasks.TurnRecorded) error {
	if evt.Persisted {
		log.Infow("turn recorded", "sessionId", evt.SessionID, "mode", evt.Mode, "style", evt.StyleKey)
		return nil
	}
	log.Warnw("turn not persisted",
		"sessionId", evt.SessionID,
		"mode", evt.Mode,
		"style", evt.StyleKey,
		"frameworks", evt.FrameworkKeys,
		"userText", evt.UserText,
		"aiText", evt.AIText,
		"userAt", evt.UserAt,
		"aiAt", evt.AIAt,
	)
	return nil
}
