package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"portify/internal/account"
	"portify/internal/api"
	"portify/internal/auth"
	"portify/internal/catalog"
	"portify/internal/config"
	"portify/internal/database"
	"portify/internal/portfolio"
	"portify/internal/slug"
	"portify/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.API.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("image_host", cfg.ImageHost.Driver),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database ready")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	backend, err := newImageHost(context.Background(), cfg.ImageHost)
	if err != nil {
		log.Fatalf("init image host: %v", err)
	}
	imageHost := storage.NewResilientHost(backend, storage.ResilientOptions{
		Name:          cfg.ImageHost.Driver,
		MaxFailures:   cfg.ImageHost.BreakerFailures,
		OpenTimeout:   cfg.ImageHost.BreakerTimeout,
		DeleteRetries: cfg.ImageHost.DeleteRetries,
		Logger:        logger.With(slog.String("component", "image_host")),
	})

	authService, err := auth.NewAuthServiceFromConfig(cfg.JWT)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}
	secureCookies := strings.HasPrefix(cfg.Google.CallbackURL, "https://")
	if err := auth.SetupGoogleOAuth(cfg.Google, secureCookies); err != nil {
		log.Fatalf("setup google oauth: %v", err)
	}

	accounts := account.NewService(db)
	templates := catalog.NewService(db)
	portfolios := portfolio.NewService(db, slug.NewAllocator(db, cfg.Portfolio.SlugMaxProbes), templates, portfolio.Options{
		Limit:       cfg.Portfolio.Limit,
		SlugRetries: cfg.Portfolio.SlugRetries,
		Logger:      logger.With(slog.String("component", "portfolio")),
	})

	if schedule := strings.TrimSpace(cfg.Portfolio.ReconcileSchedule); schedule != "" {
		reconciler, err := portfolio.NewReconciler(db, schedule, logger.With(slog.String("component", "reconciler")))
		if err != nil {
			log.Fatalf("init reconciler: %v", err)
		}
		reconciler.Start()
		defer reconciler.Stop()
		logger.Info("portfolio count reconciler scheduled", slog.String("schedule", schedule))
	}

	router := api.NewRouter(logger, cfg.API.FrontendURL)
	api.RegisterRoutes(router, api.Deps{
		Accounts:      accounts,
		Portfolios:    portfolios,
		Templates:     templates,
		AuthService:   authService,
		Redis:         redisClient,
		ImageHost:     imageHost,
		Scan:          api.ClamdScanner(cfg.Upload.ClamdAddr),
		FrontendURL:   cfg.API.FrontendURL,
		CookieDomain:  cfg.API.CookieDomain,
		MaxUpload:     cfg.Upload.MaxBytes,
		UploadPerHour: cfg.Upload.RateLimitPerHour,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

func newImageHost(ctx context.Context, cfg config.ImageHostConfig) (storage.ImageHost, error) {
	switch cfg.Driver {
	case config.ImageHostCloudinary:
		host, err := storage.NewCloudinaryHost(cfg.Cloudinary)
		if err != nil {
			return nil, err
		}
		return host, nil
	case config.ImageHostMinIO, "":
		host, err := storage.NewMinIOHost(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return host, nil
	default:
		return nil, fmt.Errorf("unknown image host driver %q", cfg.Driver)
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
