package middleware

import (
	"argumentor-go/internal/service"
	"argumentor-go/pkg/log"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorHandler 是唯一把错误转换为 HTTP 响应的地方。
// 处理函数通过 c.Error(err) 上报错误后直接返回。
// 补全服务与存储的失败统一返回 500，不向调用方区分。
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, message := classify(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
		} else {
			log.Warnw("request rejected", "path", c.Request.URL.Path, "status", status, "error", err)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, gin.H{"error": message})
	}
}

func classify(err error) (int, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, service.ErrSessionNotFound.Error()
	case errors.Is(err, service.ErrSessionBusy):
		return http.StatusConflict, service.ErrSessionBusy.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
