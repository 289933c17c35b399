package database

// PersonalInfo 是作品集的个人信息段落。
type PersonalInfo struct {
	FullName    string       `json:"fullName" binding:"required,max=100"`
	Title       string       `json:"title" binding:"required,max=100"`
	Location    string       `json:"location" binding:"required,max=100"`
	Email       string       `json:"email" binding:"required,email"`
	Phone       string       `json:"phone,omitempty" binding:"omitempty,max=20"`
	Website     string       `json:"website,omitempty" binding:"omitempty,url"`
	Avatar      string       `json:"avatar,omitempty" binding:"omitempty,url"`
	Bio         string       `json:"bio" binding:"required,max=500"`
	SocialLinks []SocialLink `json:"socialLinks" binding:"omitempty,dive"`
}

// SocialLink 描述一个社交平台链接。
type SocialLink struct {
	Platform string `json:"platform" binding:"required,oneof=linkedin github twitter instagram facebook youtube tiktok behance dribbble medium devto personal"`
	URL      string `json:"url" binding:"required,url"`
	Label    string `json:"label,omitempty" binding:"omitempty,max=50"`
}

type WorkExperience struct {
	ID           string   `json:"id,omitempty"`
	Company      string   `json:"company" binding:"required,max=100"`
	Position     string   `json:"position" binding:"required,max=100"`
	Location     string   `json:"location" binding:"required,max=100"`
	StartDate    string   `json:"startDate" binding:"required"`
	EndDate      string   `json:"endDate,omitempty"`
	Current      bool     `json:"current"`
	Contribution []string `json:"contribution" binding:"omitempty,dive,max=200"`
}

type Education struct {
	ID          string `json:"id,omitempty"`
	Institution string `json:"institution" binding:"required,max=100"`
	Degree      string `json:"degree" binding:"required,max=100"`
	Field       string `json:"field" binding:"required,max=100"`
	StartDate   string `json:"startDate" binding:"required"`
	EndDate     string `json:"endDate,omitempty"`
	Current     bool   `json:"current"`
}

type Skill struct {
	Name     string `json:"name" binding:"required,max=50"`
	Category string `json:"category,omitempty" binding:"omitempty,max=30"`
}

type Project struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name" binding:"required,max=100"`
	Description  string        `json:"description" binding:"required,max=1000"`
	Technologies []string      `json:"technologies" binding:"omitempty,dive,max=30"`
	StartDate    string        `json:"startDate" binding:"required"`
	EndDate      string        `json:"endDate,omitempty"`
	Current      bool          `json:"current"`
	Links        []ProjectLink `json:"links" binding:"omitempty,dive"`
}

type ProjectLink struct {
	Label string `json:"label,omitempty" binding:"omitempty,max=50"`
	URL   string `json:"url" binding:"required,url"`
}

// ProfileData 是账号上保存的草稿资料，字段均可选。
type ProfileData struct {
	PersonalInfo *DraftPersonalInfo `json:"personalInfo,omitempty"`
	Experience   []DraftExperience  `json:"experience,omitempty"`
	Education    []DraftEducation   `json:"education,omitempty"`
	Projects     []DraftProject     `json:"projects,omitempty"`
	Skills       []DraftSkillGroup  `json:"skills,omitempty"`
}

type DraftPersonalInfo struct {
	FullName string `json:"fullName,omitempty"`
	JobTitle string `json:"jobTitle,omitempty"`
	Location string `json:"location,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	About    string `json:"about,omitempty"`
}

type DraftExperience struct {
	Company      string   `json:"company,omitempty"`
	Position     string   `json:"position,omitempty"`
	StartMonth   string   `json:"startMonth,omitempty"`
	StartYear    string   `json:"startYear,omitempty"`
	EndMonth     string   `json:"endMonth,omitempty"`
	EndYear      string   `json:"endYear,omitempty"`
	Description  string   `json:"description,omitempty"`
	Location     string   `json:"location,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
	Current      bool     `json:"current"`
}

type DraftEducation struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartYear   string `json:"startYear,omitempty"`
	EndYear     string `json:"endYear,omitempty"`
	Current     bool   `json:"current"`
}

type DraftProject struct {
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	Links        []string `json:"links,omitempty"`
}

type DraftSkillGroup struct {
	Category string   `json:"category,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}
