package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"portify/internal/api/middleware"
	"portify/internal/auth"
	"portify/internal/storage"
)

// Deps 汇总注册路由所需的服务。
type Deps struct {
	Accounts      AccountService
	Portfolios    PortfolioService
	Templates     TemplateService
	AuthService   *auth.AuthService
	Redis         redis.UniversalClient
	ImageHost     storage.ImageHost
	Scan          ScanFunc
	FrontendURL   string
	CookieDomain  string
	MaxUpload     int64
	UploadPerHour int
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, d Deps) {
	registerValidators()

	authHandler := NewAuthHandler(d.Accounts, d.AuthService, d.Redis, d.FrontendURL, d.CookieDomain)
	accountHandler := NewAccountHandler(d.Accounts)
	portfolioHandler := NewPortfolioHandler(d.Portfolios)
	templateHandler := NewTemplateHandler(d.Templates)
	uploadHandler := NewUploadHandler(d.ImageHost, d.Accounts, d.Portfolios, d.Templates, d.Scan, d.MaxUpload)

	authMiddleware := middleware.AuthMiddleware(d.AuthService)
	adminOnly := middleware.RequireAdmin(d.Accounts)
	uploadLimit := middleware.UploadRateLimit(d.Redis, d.UploadPerHour)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.GET("/google", authHandler.BeginGoogle)
			authGroup.GET("/google/callback", authHandler.GoogleCallback)
			authGroup.GET("/validate", authMiddleware, authHandler.Validate)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
		}

		userGroup := v1.Group("/users")
		userGroup.Use(authMiddleware)
		{
			userGroup.GET("/profile", accountHandler.GetProfile)
			userGroup.PUT("/profile", accountHandler.UpdateProfile)
			userGroup.GET("/onboarding-status", accountHandler.OnboardingStatus)
			userGroup.POST("/avatar", uploadLimit, uploadHandler.LimitBody(uploadKindAvatar), uploadHandler.UploadAccountAvatar)
			userGroup.PUT("/:id", accountHandler.UpdateAccount)
			userGroup.PUT("/:id/role", accountHandler.SetRole)
		}

		portfolioGroup := v1.Group("/portfolio")
		{
			portfolioGroup.GET("/public/:slug", portfolioHandler.GetPublic)
			portfolioGroup.GET("/template/:templateId", portfolioHandler.ListByTemplate)

			owned := portfolioGroup.Group("")
			owned.Use(authMiddleware)
			owned.GET("/me", portfolioHandler.GetMyProfile)
			owned.POST("", portfolioHandler.Create)
			owned.POST("/avatar", uploadLimit, uploadHandler.LimitBody(uploadKindPortfolioAvatar), uploadHandler.UploadPortfolioAvatar)
			owned.GET("/slug/:slug", portfolioHandler.CheckSlug)
			owned.GET("/:id", portfolioHandler.Get)
			owned.PUT("/:id", portfolioHandler.Update)
			owned.DELETE("/:id", portfolioHandler.Delete)
			owned.GET("/:id/with-template", portfolioHandler.GetWithTemplate)
		}

		templateGroup := v1.Group("/templates")
		{
			templateGroup.GET("", templateHandler.List)
			templateGroup.GET("/categories", templateHandler.Categories)
			templateGroup.GET("/default", templateHandler.Default)
			templateGroup.GET("/:id", templateHandler.Get)

			admin := templateGroup.Group("")
			admin.Use(authMiddleware, adminOnly)
			admin.POST("", templateHandler.Create)
			admin.POST("/upload-image", uploadLimit, uploadHandler.LimitBody(uploadKindTemplate), uploadHandler.UploadTemplateImage)
			admin.PUT("/:id", templateHandler.Update)
			admin.DELETE("/:id", templateHandler.Delete)
		}
	}
}
