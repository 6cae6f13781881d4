// Package kafka 提供了对话日志（turn journal）的 Kafka 生产者与消费者。
package kafka

import (
	"argumentor-go/internal/config"
	"argumentor-go/pkg/log"
	"argumentor-go/pkg/tasks"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// TurnProducer 将 TurnRecorded 事件写入 Kafka。
type TurnProducer struct {
	writer *kafka.Writer
}

// NewTurnProducer 初始化 Kafka 生产者。消息以会话 ID 为 key，同一会话的事件落在同一分区。
func NewTurnProducer(cfg config.KafkaConfig) *TurnProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.BrokerList()...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka 生产者初始化成功")
	return &TurnProducer{writer: w}
}

// Publish 发送一条对话事件。
func (p *TurnProducer) Publish(ctx context.Context, evt tasks.TurnRecorded) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.SessionID),
		Value: value,
	})
}

// Close 刷新并关闭生产者。
func (p *TurnProducer) Close() error {
	return p.writer.Close()
}

// TurnProcessor 重放未能持久化的对话轮次。
type TurnProcessor interface {
	ReplayTurn(ctx context.Context, evt tasks.TurnRecorded) error
}

const defaultMaxAttempts = 3

// TurnConsumer 消费对话日志，并把 Persisted=false 的轮次补写回会话存储。
type TurnConsumer struct {
	reader      *kafka.Reader
	processor   TurnProcessor
	rdb         *redis.Client
	maxAttempts int
	backoff     func(attempt int) time.Duration
	// rdb 为空时在进程内计数
	attempts map[string]int64
}

// NewTurnConsumer 创建消费者。rdb 可以为 nil。
func NewTurnConsumer(cfg config.KafkaConfig, processor TurnProcessor, rdb *redis.Client) *TurnConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BrokerList(),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newTurnConsumer(r, processor, rdb)
}

func newTurnConsumer(r *kafka.Reader, processor TurnProcessor, rdb *redis.Client) *TurnConsumer {
	return &TurnConsumer{
		reader:      r,
		processor:   processor,
		rdb:         rdb,
		maxAttempts: defaultMaxAttempts,
		backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
		attempts:    make(map[string]int64),
	}
}

// Run 循环拉取消息，直到 ctx 被取消。
func (c *TurnConsumer) Run(ctx context.Context) error {
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.reader.Config().Topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch turn event: %w", err)
		}

		c.handle(ctx, m)

		// 成功、跳过或重试耗尽后都提交 offset，避免阻塞分区
		if err := c.reader.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handle 处理单条消息，返回是否已成功补写（或无需补写）。
func (c *TurnConsumer) handle(ctx context.Context, m kafka.Message) bool {
	var evt tasks.TurnRecorded
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		return false
	}
	if evt.Persisted {
		return true
	}

	key := fmt.Sprintf("argumentor:journal:attempts:%d:%d", m.Partition, m.Offset)
	logger := log.With("sessionId", evt.SessionID, "partition", m.Partition, "offset", m.Offset)
	for {
		attempt := c.incrAttempts(ctx, key)
		if attempt > int64(c.maxAttempts) {
			logger.Errorw("对话补写多次失败，放弃该事件", "userText", evt.UserText, "aiText", evt.AIText)
			return false
		}

		err := c.processor.ReplayTurn(ctx, evt)
		if err == nil {
			logger.Infow("对话补写成功", "attempt", attempt)
			c.resetAttempts(ctx, key)
			return true
		}
		logger.Warnw("对话补写失败", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff(int(attempt))):
		}
	}
}

// 尝试次数保存在 Redis 中，进程重启后继续累计。
func (c *TurnConsumer) incrAttempts(ctx context.Context, key string) int64 {
	if c.rdb != nil {
		n, err := c.rdb.Incr(ctx, key).Result()
		if err == nil {
			_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()
			return n
		}
		log.Warnf("Redis 计数失败，回退到进程内计数: %v", err)
	}
	c.attempts[key]++
	return c.attempts[key]
}

func (c *TurnConsumer) resetAttempts(ctx context.Context, key string) {
	delete(c.attempts, key)
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, key).Err()
	}
}
