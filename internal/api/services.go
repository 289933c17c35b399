package api

import (
	"context"

	"portify/internal/account"
	"portify/internal/catalog"
	"portify/internal/database"
	"portify/internal/portfolio"
)

// AccountService 由 account.Service 实现。
type AccountService interface {
	ResolveOrProvision(ctx context.Context, a account.Assertion) (*database.Account, error)
	Get(ctx context.Context, id uint) (*database.Account, error)
	RoleOf(ctx context.Context, id uint) (string, error)
	UpdateProfile(ctx context.Context, id uint, in account.ProfileUpdate) (*database.Account, error)
	UpdateAccount(ctx context.Context, callerID, targetID uint, in account.AccountUpdate) (*database.Account, error)
	SetRole(ctx context.Context, callerID, targetID uint, role string) (*database.Account, error)
	SetAvatar(ctx context.Context, id uint, url string) (*database.Account, error)
	OnboardingStatus(ctx context.Context, id uint) (bool, error)
}

// PortfolioService 由 portfolio.Service 实现。
type PortfolioService interface {
	GetProfile(ctx context.Context, accountID uint) (*portfolio.Profile, error)
	Create(ctx context.Context, accountID uint, in portfolio.CreateInput) (*database.Portfolio, error)
	Get(ctx context.Context, accountID, portfolioID uint) (*database.Portfolio, error)
	GetWithTemplate(ctx context.Context, accountID, portfolioID uint) (*portfolio.WithTemplate, error)
	Update(ctx context.Context, accountID, portfolioID uint, in portfolio.UpdateInput) (*database.Portfolio, error)
	Delete(ctx context.Context, accountID, portfolioID uint) (*database.Portfolio, error)
	GetPublicBySlug(ctx context.Context, slug string) (*database.Portfolio, error)
	ListByTemplate(ctx context.Context, templateID uint) ([]database.Portfolio, error)
	CheckSlugAvailability(ctx context.Context, slug string, excludeID uint) (bool, error)
	SetAvatar(ctx context.Context, accountID, portfolioID uint, url string) (*database.Portfolio, error)
}

// TemplateService 由 catalog.Service 实现。
type TemplateService interface {
	List(ctx context.Context, f catalog.Filter) (*catalog.ListResult, error)
	Categories(ctx context.Context) ([]catalog.CategoryCount, error)
	Get(ctx context.Context, id uint) (*database.Template, error)
	Default(ctx context.Context) (*database.Template, error)
	Create(ctx context.Context, in catalog.CreateInput) (*database.Template, error)
	Update(ctx context.Context, id uint, in catalog.UpdateInput) (*database.Template, error)
	Delete(ctx context.Context, id uint) error
	SetPreviewImage(ctx context.Context, id uint, previewURL, thumbnailURL string) (*database.Template, error)
}

var (
	_ AccountService   = (*account.Service)(nil)
	_ PortfolioService = (*portfolio.Service)(nil)
	_ TemplateService  = (*catalog.Service)(nil)
)
