package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portify/internal/auth"
)

func TestRevocations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	r := revocations{rdb: rdb, prefix: "test:revoked:"}
	ctx := context.Background()

	claims := &auth.TokenClaims{}
	claims.ID = "jti-1"
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	revoked, err := r.isRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.revoke(ctx, claims, time.Hour))
	revoked, err = r.isRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, time.Second, mr.TTL("test:revoked:jti-1"), "expired tokens still get a short entry")

	claims.ID = "jti-2"
	claims.ExpiresAt = nil
	require.NoError(t, r.revoke(ctx, claims, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("test:revoked:jti-2"))
}

func TestCookieJar(t *testing.T) {
	jar := cookieJar{domain: " example.test "}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.TLS = &tls.ConnectionState{}
	jar.write(c, "tok", 2*time.Hour)

	ck := w.Result().Cookies()[0]
	assert.Equal(t, "tok", ck.Value)
	assert.Equal(t, 7200, ck.MaxAge)
	assert.Equal(t, "example.test", ck.Domain)
	assert.True(t, ck.Secure)
	assert.True(t, ck.HttpOnly)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	jar.clear(c)
	ck = w.Result().Cookies()[0]
	assert.Equal(t, -1, ck.MaxAge)
	assert.False(t, ck.Secure)
}

func TestPresentedRefreshToken(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refresh_token":"from-body"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	assert.Equal(t, "from-body", presentedRefreshToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refresh_token":"from-body"}`))
	c.Request.AddCookie(&http.Cookie{Name: refreshCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", presentedRefreshToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Empty(t, presentedRefreshToken(c))
}
