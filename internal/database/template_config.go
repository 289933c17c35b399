package database

// TemplateConfig 描述模板的段落开关、条目上限与样式。
type TemplateConfig struct {
	Sections TemplateSections `json:"sections"`
	Styling  TemplateStyling  `json:"styling"`
}

type TemplateSections struct {
	PersonalInfo PersonalInfoSection `json:"personalInfo"`
	Experience   ExperienceSection   `json:"experience"`
	Education    EducationSection    `json:"education"`
	Skills       SkillsSection       `json:"skills"`
	Projects     ProjectsSection     `json:"projects"`
}

type PersonalInfoSection struct {
	Enabled          bool     `json:"enabled"`
	Fields           []string `json:"fields,omitempty"`
	Layout           string   `json:"layout" binding:"omitempty,oneof=compact detailed minimal"`
	ShowSocialLinks  bool     `json:"showSocialLinks"`
	SocialLinksStyle string   `json:"socialLinksStyle" binding:"omitempty,oneof=icons buttons text"`
	MaxSocialLinks   int      `json:"maxSocialLinks" binding:"omitempty,min=1,max=12"`
	ShowPhone        bool     `json:"showPhone"`
	ShowWebsite      bool     `json:"showWebsite"`
	ShowLocation     bool     `json:"showLocation"`
}

type ExperienceSection struct {
	Enabled          bool `json:"enabled"`
	MaxItems         int  `json:"maxItems" binding:"omitempty,min=1,max=20"`
	ShowDuration     bool `json:"showDuration"`
	ShowLocation     bool `json:"showLocation"`
	ShowContribution bool `json:"showContribution"`
	ShowCurrent      bool `json:"showCurrent"`
}

type EducationSection struct {
	Enabled     bool `json:"enabled"`
	MaxItems    int  `json:"maxItems" binding:"omitempty,min=1,max=10"`
	ShowField   bool `json:"showField"`
	ShowCurrent bool `json:"showCurrent"`
}

type SkillsSection struct {
	Enabled         bool `json:"enabled"`
	MaxItems        int  `json:"maxItems" binding:"omitempty,min=1,max=50"`
	GroupByCategory bool `json:"groupByCategory"`
}

type ProjectsSection struct {
	Enabled          bool `json:"enabled"`
	MaxItems         int  `json:"maxItems" binding:"omitempty,min=1,max=20"`
	ShowTechnologies bool `json:"showTechnologies"`
	ShowProjectLinks bool `json:"showProjectLinks"`
	ShowDuration     bool `json:"showDuration"`
	ShowCurrent      bool `json:"showCurrent"`
}

type TemplateStyling struct {
	PrimaryColor   string `json:"primaryColor" binding:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondaryColor" binding:"omitempty,hexcolor"`
	FontFamily     string `json:"fontFamily" binding:"omitempty,max=50"`
	Layout         string `json:"layout" binding:"omitempty,oneof=single-column two-column grid"`
}

// DefaultTemplateConfig 返回目录的缺省配置，所有段落启用。
func DefaultTemplateConfig() TemplateConfig {
	return TemplateConfig{
		Sections: TemplateSections{
			PersonalInfo: PersonalInfoSection{
				Enabled:          true,
				Fields:           []string{"fullName", "title", "location", "email", "bio"},
				Layout:           "detailed",
				ShowSocialLinks:  true,
				SocialLinksStyle: "icons",
				MaxSocialLinks:   6,
				ShowPhone:        true,
				ShowWebsite:      true,
				ShowLocation:     true,
			},
			Experience: ExperienceSection{
				Enabled:          true,
				MaxItems:         5,
				ShowDuration:     true,
				ShowLocation:     true,
				ShowContribution: true,
				ShowCurrent:      true,
			},
			Education: EducationSection{
				Enabled:     true,
				MaxItems:    3,
				ShowField:   true,
				ShowCurrent: true,
			},
			Skills: SkillsSection{
				Enabled:  true,
				MaxItems: 20,
			},
			Projects: ProjectsSection{
				Enabled:          true,
				MaxItems:         4,
				ShowTechnologies: true,
				ShowProjectLinks: true,
				ShowDuration:     true,
				ShowCurrent:      true,
			},
		},
		Styling: TemplateStyling{
			PrimaryColor:   "#8B5CF6",
			SecondaryColor: "#F3F4F6",
			FontFamily:     "Inter",
			Layout:         "single-column",
		},
	}
}

// WithDefaults 用缺省值补齐未设置的字符串与数值项，布尔开关保持调用方给出的值。
func (c TemplateConfig) WithDefaults() TemplateConfig {
	d := DefaultTemplateConfig()

	pi := &c.Sections.PersonalInfo
	if len(pi.Fields) == 0 {
		pi.Fields = d.Sections.PersonalInfo.Fields
	}
	if pi.Layout == "" {
		pi.Layout = d.Sections.PersonalInfo.Layout
	}
	if pi.SocialLinksStyle == "" {
		pi.SocialLinksStyle = d.Sections.PersonalInfo.SocialLinksStyle
	}
	if pi.MaxSocialLinks == 0 {
		pi.MaxSocialLinks = d.Sections.PersonalInfo.MaxSocialLinks
	}
	if c.Sections.Experience.MaxItems == 0 {
		c.Sections.Experience.MaxItems = d.Sections.Experience.MaxItems
	}
	if c.Sections.Education.MaxItems == 0 {
		c.Sections.Education.MaxItems = d.Sections.Education.MaxItems
	}
	if c.Sections.Skills.MaxItems == 0 {
		c.Sections.Skills.MaxItems = d.Sections.Skills.MaxItems
	}
	if c.Sections.Projects.MaxItems == 0 {
		c.Sections.Projects.MaxItems = d.Sections.Projects.MaxItems
	}

	s := &c.Styling
	if s.PrimaryColor == "" {
		s.PrimaryColor = d.Styling.PrimaryColor
	}
	if s.SecondaryColor == "" {
		s.SecondaryColor = d.Styling.SecondaryColor
	}
	if s.FontFamily == "" {
		s.FontFamily = d.Styling.FontFamily
	}
	if s.Layout == "" {
		s.Layout = d.Styling.Layout
	}
	return c
}
