package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"portify/internal/auth"
)

const refreshCookie = "refresh_token"

// revocations 记录已作废的刷新令牌 jti，键在令牌原本的过期时间后自动消失。
type revocations struct {
	rdb    redis.UniversalClient
	prefix string
}

func (r revocations) key(jti string) string { return r.prefix + jti }

func (r revocations) isRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// revoke 至少保留一秒，避免已过期令牌的 TTL 为零时写入失败。
func (r revocations) revoke(ctx context.Context, claims *auth.TokenClaims, fallback time.Duration) error {
	ttl := fallback
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	ttl = max(ttl, time.Second)
	return r.rdb.Set(ctx, r.key(claims.ID), "revoked", ttl).Err()
}

// cookieJar 写入和清除 HttpOnly 刷新令牌 Cookie。
type cookieJar struct {
	domain string
}

func (j cookieJar) write(c *gin.Context, value string, ttl time.Duration) {
	ck := j.base(c)
	ck.Value = value
	if ttl <= 0 {
		ttl = time.Hour
	}
	ck.MaxAge = int(ttl.Seconds())
	ck.Expires = time.Now().Add(ttl)
	http.SetCookie(c.Writer, ck)
}

func (j cookieJar) clear(c *gin.Context) {
	ck := j.base(c)
	ck.MaxAge = -1
	http.SetCookie(c.Writer, ck)
}

func (j cookieJar) base(c *gin.Context) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookie,
		Path:     "/",
		Domain:   strings.TrimSpace(j.domain),
		Secure:   overHTTPS(c.Request),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// presentedRefreshToken 优先读 Cookie，其次读 JSON body 的 refresh_token。
func presentedRefreshToken(c *gin.Context) string {
	if v, err := c.Cookie(refreshCookie); err == nil && v != "" {
		return v
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&body)
	return body.RefreshToken
}

func overHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
