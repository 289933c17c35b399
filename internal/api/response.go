package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"portify/internal/api/middleware"
	"portify/internal/errcode"
)

// envelope 是所有 JSON 响应的统一外壳。
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// OK 返回 200 成功信封。
func OK(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Message: message, Timestamp: now()})
}

// Created 返回 201 成功信封。
func Created(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data, Message: message, Timestamp: now()})
}

// Error 以状态码对应的短语作为 error 字段。
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, envelope{Success: false, Error: http.StatusText(status), Message: msg, Timestamp: now()})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "Authentication required") }
func Internal(c *gin.Context)               { Error(c, http.StatusInternalServerError, "Internal server error") }

// statusFor 是错误分类到 HTTP 状态码的唯一映射。
func statusFor(kind errcode.Kind) int {
	switch kind {
	case errcode.KindNotFound:
		return http.StatusNotFound
	case errcode.KindForbidden:
		return http.StatusForbidden
	case errcode.KindConflict:
		return http.StatusConflict
	case errcode.KindValidation:
		return http.StatusBadRequest
	case errcode.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError 把服务层错误写成响应；内部错误只记录日志，不向客户端暴露细节。
func respondError(c *gin.Context, err error) {
	coded := errcode.From(err)
	status := statusFor(coded.Kind)
	if status == http.StatusInternalServerError {
		middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		Internal(c)
		return
	}
	Error(c, status, coded.Message)
}

// bindError 把 gin 绑定错误转换为可读的 400 消息。
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fe.Namespace()+" failed on '"+fe.Tag()+"'")
		}
		BadRequest(c, "Validation failed: "+strings.Join(parts, "; "))
		return
	}
	BadRequest(c, "Invalid request body")
}

// accountIDFromContext 取出 AuthMiddleware 注入的账号；缺失时写 401。
func accountIDFromContext(c *gin.Context) (uint, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		Unauthorized(c)
		return 0, false
	}
	return id, true
}

// parseIDParam 解析路径中的正整数 ID；非法时写 400。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
