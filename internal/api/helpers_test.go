package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"portify/internal/account"
	"portify/internal/auth"
	"portify/internal/catalog"
	"portify/internal/database"
	"portify/internal/database/dbtest"
	"portify/internal/portfolio"
	"portify/internal/slug"
	"portify/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeHost 记录上传内容，不访问任何外部服务。
type fakeHost struct {
	uploads []storage.Upload
	bodies  [][]byte
	deleted []string
	fail    error
}

func (h *fakeHost) UploadImage(_ context.Context, up storage.Upload) (*storage.Image, error) {
	if h.fail != nil {
		return nil, h.fail
	}
	body, _ := io.ReadAll(up.Body)
	h.uploads = append(h.uploads, up)
	h.bodies = append(h.bodies, body)
	id := up.Folder + "/" + up.Prefix + "_test"
	u := "https://img.example/" + id
	return &storage.Image{URL: u, PublicID: id, PreviewURL: u + "?preview", ThumbnailURL: u + "?thumb"}, nil
}

func (h *fakeHost) DeleteImage(_ context.Context, publicID string) error {
	h.deleted = append(h.deleted, publicID)
	return nil
}

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	tokens  *auth.AuthService
	host    *fakeHost
	redis   *miniredis.Miniredis
	auth    *AuthHandler
	scan    ScanFunc
	limit   int
	tpl     database.Template
	owner   database.Account
	adminID uint
}

type serverOption func(*testServer)

func withLimit(n int) serverOption       { return func(s *testServer) { s.limit = n } }
func withScan(fn ScanFunc) serverOption { return func(s *testServer) { s.scan = fn } }

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	s := &testServer{limit: 10, host: &fakeHost{}}
	for _, opt := range opts {
		opt(s)
	}

	s.db = dbtest.Open(t)
	s.tokens = newTestAuthService(t)
	s.redis = miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	accounts := account.NewService(s.db)
	templates := catalog.NewService(s.db)
	portfolios := portfolio.NewService(s.db, slug.NewAllocator(s.db, 0), templates, portfolio.Options{Limit: s.limit, SlugRetries: 3})

	s.tpl = dbtest.SeedTemplate(t, s.db, "Classic", true, true)
	s.owner = dbtest.SeedAccount(t, s.db, "owner@example.com")
	admin := dbtest.SeedAccount(t, s.db, "admin@example.com")
	require.NoError(t, s.db.Model(&admin).Update("role", database.RoleAdmin).Error)
	s.adminID = admin.ID

	s.router = NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), "http://frontend.test")
	RegisterRoutes(s.router, Deps{
		Accounts:      accounts,
		Portfolios:    portfolios,
		Templates:     templates,
		AuthService:   s.tokens,
		Redis:         redisClient,
		ImageHost:     s.host,
		Scan:          s.scan,
		FrontendURL:   "http://frontend.test",
		MaxUpload:     1024,
		UploadPerHour: 100,
	})
	s.auth = NewAuthHandler(accounts, s.tokens, redisClient, "http://frontend.test", "")
	return s
}

func newTestAuthService(t *testing.T) *auth.AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	svc, err := auth.NewAuthService(privPEM, pubPEM, time.Minute, time.Hour)
	require.NoError(t, err)
	return svc
}

func (s *testServer) bearer(t *testing.T, accountID uint) string {
	t.Helper()
	pair, err := s.tokens.GenerateTokenPair(accountID, "")
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path, authz, contentType string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="image.png"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type decoded struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) decoded {
	t.Helper()
	var env decoded
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into), string(env.Data))
	}
	return env
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

var errBoom = errors.New("boom")

func portfolioBody(name string) map[string]any {
	return map[string]any{
		"portfolioData": map[string]any{
			"name":        name,
			"description": "backend engineer",
			"personalInfo": map[string]any{
				"fullName": "Ada Lovelace",
				"title":    "Engineer",
				"location": "London",
				"email":    "ada@example.com",
				"bio":      "Writes programs.",
			},
			"skills": []map[string]any{{"name": "Go"}},
		},
	}
}
