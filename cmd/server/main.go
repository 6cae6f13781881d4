// Package main 是应用程序的入口点。
package main

import (
	"argumentor-go/internal/config"
	"argumentor-go/internal/handler"
	"argumentor-go/internal/repository"
	"argumentor-go/internal/service"
	"argumentor-go/pkg/database"
	"argumentor-go/pkg/kafka"
	"argumentor-go/pkg/llm"
	"argumentor-go/pkg/log"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// 会话轮次锁的参数。
const (
	turnLockTTL  = 30 * time.Second
	turnLockWait = 2 * time.Second
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	if cfg.LLM.APIKey == "" {
		log.Warnf("未配置 OPENAI_API_KEY，补全请求将被上游拒绝")
	}

	// 3. 初始化会话存储，失败时直接退出
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal("会话存储连接失败", err)
	}
	defer database.Close(db)
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("会话表迁移失败", err)
	}

	// 4. Redis 可选：配置了地址才连接，用于跨实例的轮次锁与重放计数
	var rdb *redis.Client
	if cfg.Database.Redis.Addr != "" {
		rdb, err = database.NewRedis(context.Background(), cfg.Database.Redis)
		if err != nil {
			log.Fatal("Redis 连接失败", err)
		}
		defer rdb.Close()
	}

	// 5. 初始化 Repository
	sessionRepo := repository.NewSessionRepository(db)
	var locker repository.TurnLocker
	if rdb != nil {
		locker = repository.NewRedisTurnLocker(rdb, turnLockTTL, turnLockWait)
	} else {
		locker = repository.NewLocalTurnLocker(turnLockWait)
	}

	// 6. 对话日志：启用 Kafka 时写入主题，否则只写应用日志
	journal := service.NewLogJournal()
	var producer *kafka.TurnProducer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewTurnProducer(cfg.Kafka)
		journal = producer
	}

	// 7. 初始化 Service (依赖注入)
	llmClient := llm.NewClient(cfg.LLM)
	chatService := service.NewChatService(llmClient, sessionRepo, locker, journal, cfg.LLM.Prompt.Persona)
	sessionService := service.NewSessionService(sessionRepo)

	// 8. 启动后台 Kafka 消费者
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled() {
		consumer := kafka.NewTurnConsumer(cfg.Kafka, chatService, rdb)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(consumerCtx); err != nil {
				log.Error("Kafka 消费者异常退出", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.RouterDeps{
		ChatService:    chatService,
		SessionService: sessionService,
		Store:          sessionRepo,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先停止接收请求，等待进行中的轮次完成
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	stopConsumer()
	select {
	case <-consumerDone:
	case <-ctx.Done():
		log.Warnf("等待 Kafka 消费者退出超时")
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}

	log.Info("服务已优雅关闭")
}
