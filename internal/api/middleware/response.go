package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// abortWithError 以统一信封终止请求，与 api 包的错误响应格式一致。
func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"error":     http.StatusText(status),
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
