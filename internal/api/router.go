package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portify/internal/api/middleware"
	"portify/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎：通用中间件、健康检查与指标端点。
func NewRouter(logger *slog.Logger, frontendURL string) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.CORSMiddleware(frontendURL),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		OK(c, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}, "Service is healthy")
	})
	router.GET("/", func(c *gin.Context) {
		OK(c, gin.H{"name": "portify-api", "version": "v1"}, "Portify API")
	})
	router.GET("/metrics", metrics.Handler())

	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "Route not found")
	})

	return router
}
