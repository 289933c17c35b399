// Package catalog 维护管理员维护的模板目录。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"portify/internal/database"
	"portify/internal/errcode"
)

// Categories 是模板允许的分类。
var Categories = []string{"professional", "creative", "academic", "minimalist"}

// IsCategory 报告 name 是否为已知分类。
func IsCategory(name string) bool {
	return slices.Contains(Categories, name)
}

// Service 提供模板的查询与管理。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Filter 控制 List 的过滤条件；Active 为 nil 时只返回启用的模板。
type Filter struct {
	Active   *bool
	Category string
	Search   string
}

type ListResult struct {
	Templates  []database.Template `json:"templates"`
	Total      int                 `json:"total"`
	Categories map[string]int64    `json:"categories"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// List 按 sort_order 升序、创建时间倒序返回模板，并附带启用模板的分类计数。
func (s *Service) List(ctx context.Context, f Filter) (*ListResult, error) {
	active := true
	if f.Active != nil {
		active = *f.Active
	}

	q := s.db.WithContext(ctx).Where("is_active = ?", active)
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Where("category = ?", c)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", like, like)
	}

	var templates []database.Template
	if err := q.Order("sort_order ASC").Order("created_at DESC").Order("id DESC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for i := range templates {
		fillDefaults(&templates[i])
	}

	counts, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(counts))
	for _, c := range counts {
		byName[c.Name] = c.Count
	}

	return &ListResult{Templates: templates, Total: len(templates), Categories: byName}, nil
}

// Categories 统计启用模板的分类数量，按数量降序。
func (s *Service) Categories(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := s.db.WithContext(ctx).Model(&database.Template{}).
		Select("category AS name, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count template categories: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// Get 按 ID 读取模板，不区分启用状态。
func (s *Service) Get(ctx context.Context, id uint) (*database.Template, error) {
	var tpl database.Template
	if err := s.db.WithContext(ctx).First(&tpl, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.TemplateNotFound
		}
		return nil, fmt.Errorf("get template %d: %w", id, err)
	}
	fillDefaults(&tpl)
	return &tpl, nil
}

// Lookup 供作品集校验模板引用，语义同 Get。
func (s *Service) Lookup(ctx context.Context, id uint) (*database.Template, error) {
	return s.Get(ctx, id)
}

// Default 返回当前启用的默认模板。
func (s *Service) Default(ctx context.Context) (*database.Template, error) {
	var tpl database.Template
	err := s.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.TemplateNotFound
		}
		return nil, fmt.Errorf("get default template: %w", err)
	}
	fillDefaults(&tpl)
	return &tpl, nil
}

type CreateInput struct {
	Name           string                   `json:"name" binding:"required,max=100"`
	Description    string                   `json:"description" binding:"required,max=200"`
	Category       string                   `json:"category" binding:"required,template_category"`
	PreviewImage   string                   `json:"previewImage" binding:"omitempty,url"`
	ThumbnailImage string                   `json:"thumbnailImage" binding:"omitempty,url"`
	Config         *database.TemplateConfig `json:"config"`
	IsActive       *bool                    `json:"isActive"`
	IsDefault      bool                     `json:"isDefault"`
	SortOrder      int                      `json:"sortOrder" binding:"min=0"`
}

// Create 新建模板；IsDefault 为 true 时在同一事务内清除其他模板的默认标记。
func (s *Service) Create(ctx context.Context, in CreateInput) (*database.Template, error) {
	cfg := database.DefaultTemplateConfig()
	if in.Config != nil {
		cfg = in.Config.WithDefaults()
	}
	tpl := database.Template{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Category:       in.Category,
		PreviewImage:   in.PreviewImage,
		ThumbnailImage: in.ThumbnailImage,
		Config:         datatypes.NewJSONType(cfg),
		IsActive:       in.IsActive == nil || *in.IsActive,
		IsDefault:      in.IsDefault,
		SortOrder:      in.SortOrder,
	}

	err := s.write(ctx, tpl.IsDefault, 0, tpl.Name, func(tx *gorm.DB) error {
		return tx.Create(&tpl).Error
	})
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// UpdateInput 中为 nil 的字段保持不变。
type UpdateInput struct {
	Name           *string                  `json:"name" binding:"omitempty,max=100"`
	Description    *string                  `json:"description" binding:"omitempty,max=200"`
	Category       *string                  `json:"category" binding:"omitempty,template_category"`
	PreviewImage   *string                  `json:"previewImage" binding:"omitempty,url"`
	ThumbnailImage *string                  `json:"thumbnailImage" binding:"omitempty,url"`
	Config         *database.TemplateConfig `json:"config"`
	IsActive       *bool                    `json:"isActive"`
	IsDefault      *bool                    `json:"isDefault"`
	SortOrder      *int                     `json:"sortOrder" binding:"omitempty,min=0"`
}

func (in UpdateInput) changes() map[string]any {
	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.PreviewImage != nil {
		updates["preview_image"] = *in.PreviewImage
	}
	if in.ThumbnailImage != nil {
		updates["thumbnail_image"] = *in.ThumbnailImage
	}
	if in.Config != nil {
		updates["config"] = datatypes.NewJSONType(in.Config.WithDefaults())
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.IsDefault != nil {
		updates["is_default"] = *in.IsDefault
	}
	if in.SortOrder != nil {
		updates["sort_order"] = *in.SortOrder
	}
	return updates
}

// Update 局部更新模板。
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*database.Template, error) {
	updates := in.changes()
	if len(updates) == 0 {
		return nil, errcode.InvalidInput.WithMessage("No fields to update")
	}

	makeDefault := in.IsDefault != nil && *in.IsDefault
	var name string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}

	var tpl database.Template
	err := s.write(ctx, makeDefault, id, name, func(tx *gorm.DB) error {
		if err := tx.First(&tpl, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&tpl).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&tpl, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.TemplateNotFound
		}
		return nil, err
	}
	fillDefaults(&tpl)
	return &tpl, nil
}

// Delete 软删除：只把 is_active 置为 false，已有作品集的引用仍可解析。
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&database.Template{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("delete template %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errcode.TemplateNotFound
	}
	return nil
}

// SetPreviewImage 记录上传后的预览图与缩略图地址。
func (s *Service) SetPreviewImage(ctx context.Context, id uint, previewURL, thumbnailURL string) (*database.Template, error) {
	return s.Update(ctx, id, UpdateInput{PreviewImage: &previewURL, ThumbnailImage: &thumbnailURL})
}

const defaultWriteAttempts = 3

// write 在事务中执行模板写入；makeDefault 时先清除其他默认模板。
// 部分唯一索引 idx_templates_single_default 保证任意时刻至多一个默认模板：
// 并发设置默认撞上该索引时整体重试，次数用尽返回 DefaultConflict。
// 名称唯一索引冲突返回 DuplicateName。
func (s *Service) write(ctx context.Context, makeDefault bool, selfID uint, name string, fn func(tx *gorm.DB) error) error {
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if makeDefault {
				if err := clearDefault(tx, selfID); err != nil {
					return err
				}
			}
			return fn(tx)
		})
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("write template: %w", err)
		}

		taken, lookupErr := s.nameTaken(ctx, name, selfID)
		switch {
		case lookupErr != nil:
			return fmt.Errorf("check template name after conflict: %w", lookupErr)
		case taken || !makeDefault:
			return errcode.DuplicateName.Wrap(err)
		case attempt >= defaultWriteAttempts:
			return errcode.DefaultConflict.Wrap(err)
		}
	}
}

func (s *Service) nameTaken(ctx context.Context, name string, selfID uint) (bool, error) {
	if name == "" {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&database.Template{}).
		Where("name = ? AND id <> ?", name, selfID).
		Count(&n).Error
	return n > 0, err
}

func clearDefault(tx *gorm.DB, exceptID uint) error {
	q := tx.Model(&database.Template{}).Where("is_default = ?", true)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Update("is_default", false).Error; err != nil {
		return fmt.Errorf("clear default template: %w", err)
	}
	return nil
}

func fillDefaults(tpl *database.Template) {
	tpl.Config = datatypes.NewJSONType(tpl.Config.Data().WithDefaults())
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
