package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portify/internal/errcode"
	"portify/internal/portfolio"
)

// PortfolioHandler 负责作品集相关的 API。
type PortfolioHandler struct {
	portfolios PortfolioService
}

func NewPortfolioHandler(portfolios PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios}
}

// 请求体沿用前端约定，作品集字段包在 portfolioData 中。
type createPortfolioRequest struct {
	PortfolioData portfolio.CreateInput `json:"portfolioData"`
}

type updatePortfolioRequest struct {
	PortfolioData portfolio.UpdateInput `json:"portfolioData"`
}

// GET /v1/portfolio/me
func (h *PortfolioHandler) GetMyProfile(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	profile, err := h.portfolios.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, profile, "Profile retrieved successfully")
}

// POST /v1/portfolio
func (h *PortfolioHandler) Create(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.portfolios.Create(c.Request.Context(), accountID, req.PortfolioData)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, p, "Portfolio created successfully")
}

// GET /v1/portfolio/:id
func (h *PortfolioHandler) Get(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.portfolios.Get(c.Request.Context(), accountID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, p, "Portfolio retrieved successfully")
}

// GET /v1/portfolio/:id/with-template
func (h *PortfolioHandler) GetWithTemplate(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	out, err := h.portfolios.GetWithTemplate(c.Request.Context(), accountID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, out, "Portfolio with template retrieved successfully")
}

// PUT /v1/portfolio/:id
func (h *PortfolioHandler) Update(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.PortfolioData.Empty() {
		respondError(c, errcode.InvalidInput.WithMessage("No fields to update"))
		return
	}
	p, err := h.portfolios.Update(c.Request.Context(), accountID, id, req.PortfolioData)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, p, "Portfolio updated successfully")
}

// DELETE /v1/portfolio/:id
func (h *PortfolioHandler) Delete(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.portfolios.Delete(c.Request.Context(), accountID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, p, "Portfolio deleted successfully")
}

// GET /v1/portfolio/slug/:slug?portfolioId=
func (h *PortfolioHandler) CheckSlug(c *gin.Context) {
	if _, ok := accountIDFromContext(c); !ok {
		return
	}
	value := strings.TrimSpace(c.Param("slug"))
	if value == "" {
		BadRequest(c, "Slug is required")
		return
	}
	var exclude uint64
	if raw := c.Query("portfolioId"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			BadRequest(c, "Invalid portfolioId")
			return
		}
		exclude = parsed
	}
	available, err := h.portfolios.CheckSlugAvailability(c.Request.Context(), value, uint(exclude))
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, gin.H{"slug": value, "available": available}, "Slug availability checked")
}

// GET /v1/portfolio/public/:slug
func (h *PortfolioHandler) GetPublic(c *gin.Context) {
	p, err := h.portfolios.GetPublicBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, p, "Portfolio retrieved successfully")
}

// GET /v1/portfolio/template/:templateId
func (h *PortfolioHandler) ListByTemplate(c *gin.Context) {
	templateID, ok := parseIDParam(c, "templateId")
	if !ok {
		return
	}
	items, err := h.portfolios.ListByTemplate(c.Request.Context(), templateID)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, items, "Portfolios retrieved successfully")
}
