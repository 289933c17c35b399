package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/redis/go-redis/v9"

	"portify/internal/account"
	"portify/internal/api/middleware"
	"portify/internal/auth"
	"portify/internal/database"
)

const revokedRefreshPrefix = "auth:refresh:blacklist:"

// AuthHandler 处理 Google 登录回调、令牌校验、刷新与退出。
type AuthHandler struct {
	accounts    AccountService
	tokens      *auth.AuthService
	revoked     revocations
	cookies     cookieJar
	frontendURL string

	beginAuth    func(w http.ResponseWriter, r *http.Request)
	completeAuth func(w http.ResponseWriter, r *http.Request) (goth.User, error)
}

// NewAuthHandler 构造认证处理器，OAuth 握手委托给 gothic。
func NewAuthHandler(accounts AccountService, tokens *auth.AuthService, rdb redis.UniversalClient, frontendURL, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		tokens:       tokens,
		revoked:      revocations{rdb: rdb, prefix: revokedRefreshPrefix},
		cookies:      cookieJar{domain: cookieDomain},
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		beginAuth:    gothic.BeginAuthHandler,
		completeAuth: gothic.CompleteUserAuth,
	}
}

type userSummary struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role"`
}

func summarize(acc *database.Account) userSummary {
	return userSummary{ID: acc.ID, Name: acc.Name, Email: acc.Email, Avatar: acc.Avatar, Role: acc.Role}
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// GET /v1/auth/google
func (h *AuthHandler) BeginGoogle(c *gin.Context) {
	withProvider(c.Request)
	h.beginAuth(c.Writer, c.Request)
}

// GET /v1/auth/google/callback；?test=true 时返回 JSON 而不是重定向到前端。
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	testMode := c.Query("test") == "true"
	log := authLogger(c)
	withProvider(c.Request)

	fail := func(err error) {
		if !testMode {
			c.Redirect(http.StatusFound, h.frontendURL+"/auth/failure")
			return
		}
		if err == nil {
			Error(c, http.StatusUnauthorized, "Google authentication failed")
			return
		}
		respondError(c, err)
	}

	gothUser, err := h.completeAuth(c.Writer, c.Request)
	if err != nil {
		log.Info("google callback failed", slog.Any("error", err))
		fail(nil)
		return
	}

	acc, err := h.accounts.ResolveOrProvision(c.Request.Context(), account.AssertionFromGoth(gothUser))
	if err != nil {
		log.Warn("resolve account failed", slog.Any("error", err))
		fail(err)
		return
	}

	pair, err := h.tokens.GenerateTokenPair(acc.ID, acc.Email)
	if err != nil {
		log.Error("issue tokens failed", slog.Any("error", err))
		Internal(c)
		return
	}
	h.cookies.write(c, pair.RefreshToken, h.tokens.RefreshTokenTTL())
	log.Info("account signed in", slog.Uint64("account_id", uint64(acc.ID)))

	user := summarize(acc)
	if testMode {
		OK(c, gin.H{"token": pair.AccessToken, "user": user}, "Authentication successful")
		return
	}
	c.Redirect(http.StatusFound, h.successRedirect(pair.AccessToken, user))
}

// GET /v1/auth/validate
func (h *AuthHandler) Validate(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	acc, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		// 令牌有效但账号已不存在，按无效令牌处理。
		Error(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	OK(c, gin.H{"valid": true, "user": summarize(acc)}, "Token is valid")
}

// POST /v1/auth/refresh：旧刷新令牌在新令牌签发后立即作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	log := authLogger(c)

	claims, ok := h.refreshClaims(c, presentedRefreshToken(c))
	if !ok {
		Unauthorized(c)
		return
	}

	revoked, err := h.revoked.isRevoked(ctx, claims.ID)
	switch {
	case err != nil:
		log.Error("revocation lookup failed", slog.Any("error", err))
		Internal(c)
		return
	case revoked:
		log.Info("revoked refresh token presented", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	}

	acc, err := h.accounts.Get(ctx, claims.AccountID)
	if err != nil {
		log.Info("refresh for unknown account", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	pair, err := h.tokens.GenerateTokenPair(acc.ID, acc.Email)
	if err != nil {
		log.Error("issue tokens failed", slog.Any("error", err))
		Internal(c)
		return
	}
	if err := h.revoked.revoke(ctx, claims, h.tokens.RefreshTokenTTL()); err != nil {
		log.Error("revoke rotated refresh token failed", slog.Any("error", err))
		Internal(c)
		return
	}

	h.cookies.write(c, pair.RefreshToken, h.tokens.RefreshTokenTTL())
	OK(c, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.AccessTokenTTL().Seconds()),
	}, "Token refreshed successfully")
}

// POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	raw := presentedRefreshToken(c)
	if raw == "" {
		BadRequest(c, "Refresh token missing")
		return
	}
	claims, ok := h.refreshClaims(c, raw)
	if !ok {
		Unauthorized(c)
		return
	}

	if err := h.revoked.revoke(c.Request.Context(), claims, h.tokens.RefreshTokenTTL()); err != nil {
		authLogger(c).Error("logout revoke failed", slog.Any("error", err))
		Internal(c)
		return
	}
	h.cookies.clear(c)
	OK(c, nil, "Logged out successfully")
}

// refreshClaims 只接受带 jti 的 refresh 类型令牌。
func (h *AuthHandler) refreshClaims(c *gin.Context, raw string) (*auth.TokenClaims, bool) {
	if raw == "" {
		return nil, false
	}
	claims, err := h.tokens.ValidateToken(raw)
	if err != nil {
		authLogger(c).Info("refresh token rejected", slog.Any("error", err))
		return nil, false
	}
	if claims.TokenType != auth.TokenTypeRefresh || claims.ID == "" {
		authLogger(c).Info("refresh token rejected", slog.String("token_type", claims.TokenType))
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) successRedirect(token string, user userSummary) string {
	encoded, _ := json.Marshal(user)
	q := url.Values{}
	q.Set("token", token)
	q.Set("user", string(encoded))
	return h.frontendURL + "/auth/success?" + q.Encode()
}

func authLogger(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContext(c).With(slog.String("component", "auth"))
}

// withProvider 让 gothic 从 query 中读到 provider 名称。
func withProvider(r *http.Request) {
	q := r.URL.Query()
	q.Set("provider", auth.GoogleProvider)
	r.URL.RawQuery = q.Encode()
}
