package auth

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"portify/internal/config"
)

// GoogleProvider 是 goth 中注册的 provider 名称，也是路由参数的取值。
const GoogleProvider = "google"

// SetupGoogleOAuth 注册 Google provider，并为 gothic 配置保存 state 的会话存储。
func SetupGoogleOAuth(cfg config.GoogleConfig, secure bool) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return errors.New("google client id and secret are required")
	}
	secret := cfg.SessionSecret
	if secret == "" {
		secret = cfg.ClientSecret
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store

	goth.UseProviders(google.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, "email", "profile"))
	return nil
}
