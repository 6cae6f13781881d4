// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"argumentor-go/internal/service"
	"argumentor-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责处理一轮辩论对话。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest 定义了 POST /api/chat 的请求体结构。
type ChatRequest struct {
	UserText   string   `json:"userText"`
	Mode       string   `json:"mode"`
	Style      string   `json:"style"`
	Principles []string `json:"principles"`
	SessionID  string   `json:"sessionId"`
}

// Chat 处理一轮对话请求，返回 {aiText, sessionId}。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: Invalid request payload, error: %v", err)
		_ = c.Error(service.NewValidationError("invalid request body"))
		return
	}

	reply, err := h.chatService.Reply(c.Request.Context(), service.ChatRequest{
		UserText:   req.UserText,
		Mode:       req.Mode,
		Style:      req.Style,
		Principles: req.Principles,
		SessionID:  req.SessionID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, reply)
}
