// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"argumentor-go/pkg/log"
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 携带请求 ID，客户端传入时沿用，否则生成一个新的。
	RequestIDHeader = "X-Request-ID"
	// 请求体和响应体在日志中最多保留的字节数，辩论文本可能很长。
	maxLoggedBody = 4096
)

// capturingWriter 在写出响应的同时保留前 maxLoggedBody 字节。
type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

func truncate(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return string(body[:maxLoggedBody]) + "...(truncated)"
}

// RequestLogger 为每个请求分配 ID，并在结束后输出一条结构化日志。
// 健康检查只记录状态码，不记录请求体。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header(RequestIDHeader, requestID)

		// 读取并重新缓存请求体，以便后续处理函数可以正常读取
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))

		writer := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		fields := []interface{}{
			"requestId", requestID,
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if c.FullPath() != "/api/health" {
			fields = append(fields,
				"requestBody", truncate(requestBody),
				"responseBody", writer.body.String(),
			)
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
