package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"portify/internal/catalog"
)

// TemplateHandler 负责模板目录的 API；写操作只对管理员开放。
type TemplateHandler struct {
	templates TemplateService
}

func NewTemplateHandler(templates TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// GET /v1/templates?category=&isActive=&search=
func (h *TemplateHandler) List(c *gin.Context) {
	filter := catalog.Filter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw, ok := c.GetQuery("isActive"); ok {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(c, "isActive must be true or false")
			return
		}
		filter.Active = &active
	}
	result, err := h.templates.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, result, "Templates fetched successfully")
}

// GET /v1/templates/categories
func (h *TemplateHandler) Categories(c *gin.Context) {
	categories, err := h.templates.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, categories, "Template categories fetched successfully")
}

// GET /v1/templates/default
func (h *TemplateHandler) Default(c *gin.Context) {
	tpl, err := h.templates.Default(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, tpl, "Default template fetched successfully")
}

// GET /v1/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tpl, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, tpl, "Template fetched successfully")
}

// POST /v1/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req catalog.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, tpl, "Template created successfully")
}

// PUT /v1/templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	tpl, err := h.templates.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	OK(c, tpl, "Template updated successfully")
}

// DELETE /v1/templates/:id 为软删除。
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	OK(c, gin.H{"id": id}, "Template deleted successfully")
}
