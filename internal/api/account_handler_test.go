package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portify/internal/database"
)

type userData struct {
	User database.Account `json:"user"`
}

func TestAccountRoutes_Profile(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, s.owner.ID)

	w := s.do(t, http.MethodGet, "/v1/users/profile", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got userData
	decode(t, w, &got)
	assert.Equal(t, "owner@example.com", got.User.Email)
	assert.Equal(t, database.RoleUser, got.User.Role)

	w = s.do(t, http.MethodPut, "/v1/users/profile", owner, map[string]any{
		"onboardingCompleted": true,
		"profileData":         map[string]any{"personalInfo": map[string]any{"fullName": "Owner", "jobTitle": "Dev"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &got)
	assert.True(t, got.User.OnboardingCompleted)

	w = s.do(t, http.MethodGet, "/v1/users/onboarding-status", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		OnboardingCompleted bool `json:"onboardingCompleted"`
	}
	decode(t, w, &status)
	assert.True(t, status.OnboardingCompleted)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/users/profile", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/users/profile", s.bearer(t, 4040), nil).Code)
}

func TestAccountRoutes_UpdateAccount(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, s.owner.ID)

	w := s.do(t, http.MethodPut, fmt.Sprintf("/v1/users/%d", s.owner.ID), owner, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	var got userData
	decode(t, w, &got)
	assert.Equal(t, "Renamed", got.User.Name)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/v1/users/%d", s.adminID), owner, map[string]any{"name": "Hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/v1/users/%d", s.owner.ID), owner, map[string]any{"email": "admin@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/v1/users/%d", s.owner.ID), owner, map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountRoutes_SetRole(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/v1/users/%d/role", s.owner.ID)

	w := s.do(t, http.MethodPut, path, s.bearer(t, s.owner.ID), map[string]any{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code, "self-promotion is rejected")

	w = s.do(t, http.MethodPut, path, s.bearer(t, s.owner.ID), map[string]any{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, path, s.bearer(t, s.adminID), map[string]any{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	var got userData
	decode(t, w, &got)
	assert.Equal(t, database.RoleAdmin, got.User.Role)
}
