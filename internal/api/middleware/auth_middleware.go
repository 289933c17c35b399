package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portify/internal/auth"
	"portify/internal/database"
	"portify/internal/errcode"
)

const (
	accountIDKey    = "accountID"
	accountEmailKey = "accountEmail"
)

// TokenValidator 由 auth.AuthService 实现。
type TokenValidator interface {
	ValidateToken(token string) (*auth.TokenClaims, error)
}

// RoleLookup 返回账号当前角色，由 account.Service 实现。
type RoleLookup interface {
	RoleOf(ctx context.Context, id uint) (string, error)
}

// AuthMiddleware 校验访问令牌并将 accountID 注入上下文。
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := tokens.ValidateToken(rawToken)
		if err != nil || claims.TokenType != auth.TokenTypeAccess || claims.AccountID == 0 {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(accountIDKey, claims.AccountID)
		c.Set(accountEmailKey, claims.Email)
		SetLogger(c, LoggerFromContext(c).With(slog.Uint64("account_id", uint64(claims.AccountID))))
		c.Next()
	}
}

// RequireAdmin 必须挂在 AuthMiddleware 之后；角色每次从数据库读取。
func RequireAdmin(roles RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := AccountID(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		role, err := roles.RoleOf(c.Request.Context(), accountID)
		if err != nil {
			if errors.Is(err, errcode.AccountNotFound) {
				abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			LoggerFromContext(c).Error("admin role lookup failed", slog.Any("error", err))
			abortWithError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if role != database.RoleAdmin {
			abortWithError(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// AccountID 返回 AuthMiddleware 注入的账号 ID。
func AccountID(c *gin.Context) (uint, bool) {
	value, ok := c.Get(accountIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

// SetAccountID 供测试直接注入已认证的账号。
func SetAccountID(c *gin.Context, id uint) {
	c.Set(accountIDKey, id)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
