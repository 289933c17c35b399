package api

import (
	"github.com/gin-gonic/gin"

	"portify/internal/account"
)

// AccountHandler 负责 /v1/users 下的资料维护。
type AccountHandler struct {
	accounts AccountService
}

func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GET /v1/users/profile
func (h *AccountHandler) GetProfile(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	acc, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, gin.H{"user": acc}, "Profile retrieved successfully")
}

// PUT /v1/users/profile
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	var req account.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	acc, err := h.accounts.UpdateProfile(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, gin.H{"user": acc}, "Profile updated successfully")
}

// GET /v1/users/onboarding-status
func (h *AccountHandler) OnboardingStatus(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	done, err := h.accounts.OnboardingStatus(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, gin.H{"onboardingCompleted": done}, "Onboarding status retrieved successfully")
}

// PUT /v1/users/:id
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	callerID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req account.AccountUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	acc, err := h.accounts.UpdateAccount(c.Request.Context(), callerID, targetID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, gin.H{"user": acc}, "User updated successfully")
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// PUT /v1/users/:id/role
func (h *AccountHandler) SetRole(c *gin.Context) {
	callerID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	acc, err := h.accounts.SetRole(c.Request.Context(), callerID, targetID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, gin.H{"user": acc}, "User role updated successfully")
}
