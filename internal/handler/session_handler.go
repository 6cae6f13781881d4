package handler

import (
	"argumentor-go/internal/model"
	"argumentor-go/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionHandler 处理会话列表与消息查询。
type SessionHandler struct {
	service service.SessionService
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(service service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// MessagesResponse 定义了 GET /api/sessions/:sessionId/messages 的响应体结构。
type MessagesResponse struct {
	SessionID string          `json:"sessionId"`
	Messages  []model.Message `json:"messages"`
}

// ListSessions 返回所有会话摘要，最新的在前。
func (h *SessionHandler) ListSessions(c *gin.Context) {
	summaries, err := h.service.ListSessions(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// GetMessages 返回指定会话的全部消息。
func (h *SessionHandler) GetMessages(c *gin.Context) {
	sessionID := c.Param("sessionId")
	messages, err := h.service.GetMessages(c.Request.Context(), sessionID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	c.JSON(http.StatusOK, MessagesResponse{SessionID: sessionID, Messages: messages})
}
