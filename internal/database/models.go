package database

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account 表示通过 Google 登录的用户。
// PortfolioCount 是 Portfolios 的冗余计数，只能在与作品集写入相同的事务中修改。
type Account struct {
	ID                  uint                             `gorm:"primaryKey" json:"id"`
	GoogleID            string                           `gorm:"uniqueIndex;size:128;not null" json:"googleId"`
	Email               string                           `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name                string                           `gorm:"size:255" json:"name"`
	Avatar              string                           `gorm:"size:1024" json:"avatar,omitempty"`
	Username            *string                          `gorm:"uniqueIndex;size:64" json:"username,omitempty"`
	Role                string                           `gorm:"size:16;not null" json:"role"`
	PortfolioCount      int                              `gorm:"not null" json:"portfolioCount"`
	Portfolios          []Portfolio                      `gorm:"constraint:OnDelete:CASCADE" json:"portfolios,omitempty"`
	ProfileData         datatypes.JSONType[*ProfileData] `gorm:"type:jsonb" json:"profileData"`
	OnboardingCompleted bool                             `gorm:"not null" json:"onboardingCompleted"`
	CreatedAt           time.Time                        `json:"createdAt"`
	UpdatedAt           time.Time                        `json:"updatedAt"`
}

// Portfolio 表示用户创建的作品集文档。
// 没有软删除：删除后 slug 立即可被复用。
// 布尔列不设 default 标签，否则 GORM 会把 false 当作零值改写为默认值。
type Portfolio struct {
	ID           uint                                `gorm:"primaryKey" json:"id"`
	AccountID    uint                                `gorm:"index;not null" json:"accountId"`
	TemplateID   uint                                `gorm:"index;not null" json:"templateId"`
	Name         string                              `gorm:"size:100;not null" json:"name"`
	Description  string                              `gorm:"size:200" json:"description"`
	Slug         string                              `gorm:"uniqueIndex;size:160;not null" json:"slug"`
	IsPublic     bool                                `gorm:"not null;index" json:"isPublic"`
	ViewCount    int64                               `gorm:"not null" json:"viewCount"`
	PersonalInfo datatypes.JSONType[PersonalInfo]    `gorm:"type:jsonb" json:"personalInfo"`
	Experience   datatypes.JSONSlice[WorkExperience] `gorm:"type:jsonb" json:"experience"`
	Education    datatypes.JSONSlice[Education]      `gorm:"type:jsonb" json:"education"`
	Skills       datatypes.JSONSlice[Skill]          `gorm:"type:jsonb" json:"skills"`
	Projects     datatypes.JSONSlice[Project]        `gorm:"type:jsonb" json:"projects"`
	CreatedAt    time.Time                           `json:"createdAt"`
	UpdatedAt    time.Time                           `json:"updatedAt"`
}

// Template 表示管理员维护的版式配置，作品集通过 TemplateID 引用。
// IsActive 为 false 即视为删除，保留行以免破坏已有引用。
type Template struct {
	ID             uint                               `gorm:"primaryKey" json:"id"`
	Name           string                             `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description    string                             `gorm:"size:200" json:"description"`
	Category       string                             `gorm:"size:32;index:idx_templates_category_active" json:"category"`
	PreviewImage   string                             `gorm:"size:1024" json:"previewImage,omitempty"`
	ThumbnailImage string                             `gorm:"size:1024" json:"thumbnailImage,omitempty"`
	Config         datatypes.JSONType[TemplateConfig] `gorm:"type:jsonb" json:"config"`
	IsActive       bool                               `gorm:"not null;index:idx_templates_category_active" json:"isActive"`
	IsDefault      bool                               `gorm:"not null;uniqueIndex:idx_templates_single_default,where:is_default = true" json:"isDefault"`
	SortOrder      int                                `gorm:"not null;index" json:"sortOrder"`
	CreatedAt      time.Time                          `json:"createdAt"`
	UpdatedAt      time.Time                          `json:"updatedAt"`
}

// AllModels lists every model managed by AutoMigrate.
func AllModels() []any {
	return []any{&Template{}, &Account{}, &Portfolio{}}
}
