package handler

import (
	"argumentor-go/internal/middleware"
	"argumentor-go/internal/service"

	"github.com/gin-gonic/gin"
)

// RouterDeps 汇总路由需要的服务。
type RouterDeps struct {
	ChatService    service.ChatService
	SessionService service.SessionService
	Store          Pinger
	AllowedOrigins []string
}

// NewRouter 创建 Gin 引擎并注册所有 API 路由。
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(
		middleware.RequestLogger(),
		gin.Recovery(),
		middleware.CORS(deps.AllowedOrigins),
		middleware.ErrorHandler(),
	)

	chatHandler := NewChatHandler(deps.ChatService)
	sessionHandler := NewSessionHandler(deps.SessionService)
	healthHandler := NewHealthHandler(deps.Store)

	api := r.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)
		api.GET("/sessions", sessionHandler.ListSessions)
		api.GET("/sessions/:sessionId/messages", sessionHandler.GetMessages)
		api.GET("/health", healthHandler.Health)
	}
	return r
}
