package middleware

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Correlation-ID"
	requestIDKey    = "requestID"
	loggerKey       = "requestLogger"
)

// 外部传入的 ID 只接受短的可打印标识，其余一律重新生成，避免日志注入。
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID 确保每个请求带有 X-Correlation-ID，并回写到响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger 为每个请求派生带 correlation_id 与路由的 logger，结束时按状态码分级记录。
// 健康检查与指标抓取成功时只记 Debug。
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		SetLogger(c, base.With(
			slog.String("correlation_id", c.GetString(requestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
		))

		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		LoggerFromContext(c).Log(c.Request.Context(), levelFor(route, status), "request completed",
			slog.Int("status", status),
			slog.Duration("latency", time.Since(started)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("bytes", c.Writer.Size()),
		)
	}
}

func levelFor(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case route == "/health" || route == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// SetLogger 替换当前请求的 logger，供后续中间件追加字段。
func SetLogger(c *gin.Context, logger *slog.Logger) {
	c.Set(loggerKey, logger)
}

// LoggerFromContext 返回请求 logger；未经过 RequestLogger 时退回 slog.Default。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if logger, ok := c.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
