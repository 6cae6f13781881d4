package handler

import (
	"argumentor-go/pkg/log"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 检查依赖是否可用。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 提供存活检查。
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler 创建一个新的 HealthHandler。
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health 在会话存储可用时返回 200，否则返回 503。
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Error("health check failed", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
