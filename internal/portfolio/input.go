package portfolio

import (
	"strings"

	"gorm.io/datatypes"

	"portify/internal/database"
)

// CreateInput 是新建作品集的请求体；TemplateID 为 0 时使用默认模板。
type CreateInput struct {
	Name         string                    `json:"name" binding:"required,max=100"`
	Description  string                    `json:"description" binding:"omitempty,max=200"`
	TemplateID   uint                      `json:"templateId"`
	IsPublic     *bool                     `json:"isPublic"`
	PersonalInfo database.PersonalInfo     `json:"personalInfo"`
	Experience   []database.WorkExperience `json:"experience" binding:"omitempty,dive"`
	Education    []database.Education      `json:"education" binding:"omitempty,dive"`
	Skills       []database.Skill          `json:"skills" binding:"omitempty,dive"`
	Projects     []database.Project        `json:"projects" binding:"omitempty,dive"`
}

func (in CreateInput) model(accountID, templateID uint) database.Portfolio {
	return database.Portfolio{
		AccountID:    accountID,
		TemplateID:   templateID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		IsPublic:     in.IsPublic == nil || *in.IsPublic,
		PersonalInfo: datatypes.NewJSONType(in.PersonalInfo),
		Experience:   nonNil(in.Experience),
		Education:    nonNil(in.Education),
		Skills:       nonNil(in.Skills),
		Projects:     nonNil(in.Projects),
	}
}

// UpdateInput 只写入非 nil 的字段；slug 只能随 name 变化。
type UpdateInput struct {
	Name         *string                    `json:"name" binding:"omitempty,min=1,max=100"`
	Description  *string                    `json:"description" binding:"omitempty,max=200"`
	TemplateID   *uint                      `json:"templateId" binding:"omitempty,min=1"`
	IsPublic     *bool                      `json:"isPublic"`
	PersonalInfo *database.PersonalInfo     `json:"personalInfo"`
	Experience   *[]database.WorkExperience `json:"experience" binding:"omitempty,dive"`
	Education    *[]database.Education      `json:"education" binding:"omitempty,dive"`
	Skills       *[]database.Skill          `json:"skills" binding:"omitempty,dive"`
	Projects     *[]database.Project        `json:"projects" binding:"omitempty,dive"`
}

// Empty 表示请求体中没有任何可写字段。
func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.Description == nil && in.TemplateID == nil && in.IsPublic == nil &&
		in.PersonalInfo == nil && in.Experience == nil && in.Education == nil && in.Skills == nil && in.Projects == nil
}

func (in UpdateInput) changes() map[string]any {
	updates := map[string]any{}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.TemplateID != nil {
		updates["template_id"] = *in.TemplateID
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}
	if in.PersonalInfo != nil {
		updates["personal_info"] = datatypes.NewJSONType(*in.PersonalInfo)
	}
	if in.Experience != nil {
		updates["experience"] = nonNil(*in.Experience)
	}
	if in.Education != nil {
		updates["education"] = nonNil(*in.Education)
	}
	if in.Skills != nil {
		updates["skills"] = nonNil(*in.Skills)
	}
	if in.Projects != nil {
		updates["projects"] = nonNil(*in.Projects)
	}
	return updates
}

// nonNil 让空段落以 [] 而不是 null 落库。
func nonNil[T any](items []T) datatypes.JSONSlice[T] {
	if items == nil {
		return datatypes.JSONSlice[T]{}
	}
	return datatypes.JSONSlice[T](items)
}
