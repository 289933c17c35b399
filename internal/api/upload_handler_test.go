package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portify/internal/database"
	"portify/internal/database/dbtest"
	"portify/internal/errcode"
	"portify/internal/storage"
)

func TestUploadAccountAvatar(t *testing.T) {
	s := newTestServer(t)

	w := s.upload(t, "/v1/users/avatar", s.bearer(t, s.owner.ID), "image/png", pngBytes, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		AvatarURL string           `json:"avatarUrl"`
		PublicID  string           `json:"publicId"`
		User      database.Account `json:"user"`
	}
	decode(t, w, &out)
	assert.Equal(t, "https://img.example/portify/avatars/user_test", out.AvatarURL)
	assert.Equal(t, out.AvatarURL, out.User.Avatar)

	require.Len(t, s.host.uploads, 1)
	up := s.host.uploads[0]
	assert.Equal(t, storage.FolderAvatars, up.Folder)
	assert.Equal(t, "image/png", up.ContentType)
	assert.Equal(t, pngBytes, s.host.bodies[0])

	assert.Equal(t, http.StatusUnauthorized, s.upload(t, "/v1/users/avatar", "", "image/png", pngBytes, nil).Code)
}

func TestUpload_RejectsBadFiles(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, s.owner.ID)

	w := s.upload(t, "/v1/users/avatar", owner, "text/plain", []byte("hello"), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Message, "Only image files")

	w = s.upload(t, "/v1/users/avatar", owner, "image/png", []byte("#!/bin/sh\necho pwned\n"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "declared type must match the content")

	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2048)...)
	w = s.upload(t, "/v1/users/avatar", owner, "image/png", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/users/avatar", nil)
	req.Header.Set("Authorization", owner)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file provided", decode(t, rec, nil).Message)

	assert.Empty(t, s.host.uploads)
}

func TestUpload_ScanAndHostFailures(t *testing.T) {
	infected := newTestServer(t, withScan(func(r io.Reader) error {
		_, _ = io.Copy(io.Discard, r)
		return errMalicious
	}))
	w := infected.upload(t, "/v1/users/avatar", infected.bearer(t, infected.owner.ID), "image/png", pngBytes, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Malicious file detected", decode(t, w, nil).Message)
	assert.Empty(t, infected.host.uploads)

	broken := newTestServer(t, withScan(func(io.Reader) error { return errBoom }))
	w = broken.upload(t, "/v1/users/avatar", broken.bearer(t, broken.owner.ID), "image/png", pngBytes, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	s := newTestServer(t)
	s.host.fail = errBoom
	w = s.upload(t, "/v1/users/avatar", s.bearer(t, s.owner.ID), "image/png", pngBytes, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Image upload failed", decode(t, w, nil).Message)
}

func TestUploadPortfolioAvatar(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, s.owner.ID)

	w := s.do(t, http.MethodPost, "/v1/portfolio", owner, portfolioBody("Avatar Test"))
	require.Equal(t, http.StatusCreated, w.Code)
	var p database.Portfolio
	decode(t, w, &p)
	id := strconv.FormatUint(uint64(p.ID), 10)

	other := dbtest.SeedAccount(t, s.db, "other@example.com")
	w = s.upload(t, "/v1/portfolio/avatar", s.bearer(t, other.ID), "image/png", pngBytes, map[string]string{"portfolioId": id})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, s.host.uploads, "nothing is uploaded for a foreign portfolio")

	w = s.upload(t, "/v1/portfolio/avatar", owner, "image/png", pngBytes, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, "/v1/portfolio/avatar", owner, "image/png", pngBytes, map[string]string{"portfolioId": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		AvatarURL string             `json:"avatarUrl"`
		Portfolio database.Portfolio `json:"portfolio"`
	}
	decode(t, w, &out)
	assert.Equal(t, "https://img.example/portify/avatars/portfolio_test", out.AvatarURL)
	assert.Equal(t, out.AvatarURL, out.Portfolio.PersonalInfo.Data().Avatar)
	assert.Equal(t, "Ada Lovelace", out.Portfolio.PersonalInfo.Data().FullName)
}

func TestUploadTemplateImage(t *testing.T) {
	s := newTestServer(t)
	admin := s.bearer(t, s.adminID)

	w := s.upload(t, "/v1/templates/upload-image", s.bearer(t, s.owner.ID), "image/png", pngBytes, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.upload(t, "/v1/templates/upload-image", admin, "image/png", pngBytes, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var img storage.Image
	decode(t, w, &img)
	assert.Equal(t, "https://img.example/portify/templates/template_test?thumb", img.ThumbnailURL)

	w = s.upload(t, "/v1/templates/upload-image", admin, "image/png", pngBytes,
		map[string]string{"templateId": fmt.Sprint(s.tpl.ID)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		PreviewURL string            `json:"previewUrl"`
		Template   database.Template `json:"template"`
	}
	decode(t, w, &out)
	assert.Equal(t, out.PreviewURL, out.Template.PreviewImage)
	assert.Equal(t, "https://img.example/portify/templates/template_test?thumb", out.Template.ThumbnailImage)

	w = s.upload(t, "/v1/templates/upload-image", admin, "image/png", pngBytes, map[string]string{"templateId": "9999"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"portify/templates/template_test"}, s.host.deleted, "orphaned image is removed")
}

func TestUpload_RateLimited(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, s.owner.ID)

	for i := 0; i < 100; i++ {
		require.Equal(t, http.StatusOK, s.upload(t, "/v1/users/avatar", owner, "image/png", pngBytes, nil).Code)
	}
	w := s.upload(t, "/v1/users/avatar", owner, "image/png", pngBytes, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	r := gin.New()
	r.GET("/internal", func(c *gin.Context) { respondError(c, fmt.Errorf("db exploded: %w", errBoom)) })
	r.GET("/coded", func(c *gin.Context) { respondError(c, fmt.Errorf("wrap: %w", errcode.TemplateNotFound)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "Internal server error", env.Message)
	assert.NotContains(t, w.Body.String(), "exploded")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/coded", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Template not found", decode(t, w, nil).Message)
}

func TestUpload_HostUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.host.fail = fmt.Errorf("%w: breaker open", storage.ErrHostUnavailable)

	w := s.upload(t, "/v1/users/avatar", s.bearer(t, s.owner.ID), "image/png", pngBytes, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Service Unavailable", decode(t, w, nil).Error)
}

func TestUpload_BodyCappedBeforeFormFields(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, s.owner.ID)
	huge := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2*multipartOverhead)...)

	// 表单字段在文件之前，但整个请求体超限时不会读取 portfolioId。
	w := s.upload(t, "/v1/portfolio/avatar", owner, "image/png", huge, map[string]string{"portfolioId": "9999"})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w, nil).Message, "Image exceeds 1024 bytes")

	w = s.upload(t, "/v1/templates/upload-image", s.bearer(t, s.adminID), "image/png", huge, map[string]string{"templateId": "oops"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Empty(t, s.host.uploads)
}
