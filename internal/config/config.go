package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Google    GoogleConfig    `mapstructure:"google"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Upload    UploadConfig    `mapstructure:"upload"`
	ImageHost ImageHostConfig `mapstructure:"image_host"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port         int    `mapstructure:"port"`
	FrontendURL  string `mapstructure:"frontend_url"`
	CookieDomain string `mapstructure:"cookie_domain"`
	LogLevel     string `mapstructure:"log_level"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogLevel string `mapstructure:"log_level"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig 描述 RS256 密钥位置与令牌有效期。
type JWTConfig struct {
	PrivateKeyPath  string        `mapstructure:"private_key_path"`
	PublicKeyPath   string        `mapstructure:"public_key_path"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// GoogleConfig contains the OAuth client used for sign-in.
type GoogleConfig struct {
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	CallbackURL   string `mapstructure:"callback_url"`
	SessionSecret string `mapstructure:"session_secret"`
}

// PortfolioConfig 控制作品集配额与 slug 分配。
// Limit 的生产值尚未最终确认（历史版本出现过 2 与 10），默认取 10。
type PortfolioConfig struct {
	Limit         int `mapstructure:"limit"`
	SlugMaxProbes int `mapstructure:"slug_max_probes"`
	SlugRetries   int `mapstructure:"slug_retries"`

	// ReconcileSchedule 是计数校正的 cron 表达式，为空时不启动。
	ReconcileSchedule string `mapstructure:"reconcile_schedule"`
}

// UploadConfig 限制图片上传。
type UploadConfig struct {
	MaxBytes         int64  `mapstructure:"max_bytes"`
	RateLimitPerHour int    `mapstructure:"rate_limit_per_hour"`
	ClamdAddr        string `mapstructure:"clamd_addr"`
}

// ImageHostConfig selects where uploaded images are stored.
type ImageHostConfig struct {
	Driver     string           `mapstructure:"driver"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`

	// 连续失败 BreakerFailures 次后熔断，BreakerTimeout 后放行探测请求。
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
	DeleteRetries   int           `mapstructure:"delete_retries"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
	PublicRead       bool   `mapstructure:"public_read"`
}

// CloudinaryConfig contains the signed-upload credentials for Cloudinary.
type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

const (
	ImageHostMinIO      = "minio"
	ImageHostCloudinary = "cloudinary"
)

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	cfg, err := decode()
	if err != nil {
		return nil, err
	}
	cfg.ImageHost.Driver = strings.ToLower(strings.TrimSpace(cfg.ImageHost.Driver))
	if err := validate(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase 只读取数据库配置，供不需要完整服务配置的命令行工具使用。
func LoadDatabase() (DatabaseConfig, error) {
	cfg, err := decode()
	if err != nil {
		return DatabaseConfig{}, err
	}
	return cfg.Database, nil
}

// decode 合并默认值与环境变量，不做校验。
func decode() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 3000)
	v.SetDefault("api.frontend_url", "http://localhost:3001")
	v.SetDefault("api.log_level", "info")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "portify")
	v.SetDefault("database.user", "portify")
	v.SetDefault("database.password", "portify")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.slow_query", 200*time.Millisecond)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("jwt.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("jwt.access_token_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("google.callback_url", "http://localhost:3000/v1/auth/google/callback")
	v.SetDefault("portfolio.limit", 10)
	v.SetDefault("portfolio.slug_max_probes", 1000)
	v.SetDefault("portfolio.slug_retries", 3)
	v.SetDefault("portfolio.reconcile_schedule", "0 4 * * *")
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.rate_limit_per_hour", 30)
	v.SetDefault("image_host.driver", ImageHostMinIO)
	v.SetDefault("image_host.breaker_failures", 5)
	v.SetDefault("image_host.breaker_timeout", 30*time.Second)
	v.SetDefault("image_host.delete_retries", 3)
	v.SetDefault("image_host.minio.endpoint", "localhost:9000")
	v.SetDefault("image_host.minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("image_host.minio.use_ssl", false)
	v.SetDefault("image_host.minio.bucket", "portify")
	v.SetDefault("image_host.minio.bucket_lookup", "auto")
	v.SetDefault("image_host.minio.auto_create_bucket", true)
	v.SetDefault("image_host.minio.public_read", true)
	v.SetDefault("image_host.cloudinary.base_url", "https://api.cloudinary.com")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                            "PORT",
		"api.frontend_url":                    "FRONTEND_URL",
		"api.cookie_domain":                   "COOKIE_DOMAIN",
		"api.log_level":                       "LOG_LEVEL",
		"database.host":                       "DATABASE_HOST",
		"database.port":                       "DATABASE_PORT",
		"database.name":                       "POSTGRES_DB",
		"database.user":                       "POSTGRES_USER",
		"database.password":                   "POSTGRES_PASSWORD",
		"database.sslmode":                    "DATABASE_SSLMODE",
		"database.log_level":                  "DATABASE_LOG_LEVEL",
		"database.max_open_conns":             "DATABASE_MAX_OPEN_CONNS",
		"database.max_idle_conns":             "DATABASE_MAX_IDLE_CONNS",
		"database.conn_max_lifetime":          "DATABASE_CONN_MAX_LIFETIME",
		"database.slow_query":                 "DATABASE_SLOW_QUERY",
		"redis.host":                          "REDIS_HOST",
		"redis.port":                          "REDIS_PORT",
		"redis.password":                      "REDIS_PASSWORD",
		"redis.db":                            "REDIS_DB",
		"jwt.private_key_path":                "JWT_PRIVATE_KEY_PATH",
		"jwt.public_key_path":                 "JWT_PUBLIC_KEY_PATH",
		"jwt.access_token_ttl":                "JWT_ACCESS_TOKEN_TTL",
		"jwt.refresh_token_ttl":               "JWT_REFRESH_TOKEN_TTL",
		"google.client_id":                    "GOOGLE_CLIENT_ID",
		"google.client_secret":                "GOOGLE_CLIENT_SECRET",
		"google.callback_url":                 "AUTH_GOOGLE_CALLBACK",
		"google.session_secret":               "SESSION_SECRET",
		"portfolio.limit":                     "PORTFOLIO_LIMIT",
		"portfolio.slug_max_probes":           "SLUG_MAX_PROBES",
		"portfolio.slug_retries":              "SLUG_RETRIES",
		"portfolio.reconcile_schedule":        "PORTFOLIO_RECONCILE_SCHEDULE",
		"upload.max_bytes":                    "UPLOAD_MAX_BYTES",
		"upload.rate_limit_per_hour":          "UPLOAD_RATE_LIMIT_PER_HOUR",
		"upload.clamd_addr":                   "CLAMD_ADDR",
		"image_host.driver":                   "IMAGE_HOST_DRIVER",
		"image_host.breaker_failures":         "IMAGE_HOST_BREAKER_FAILURES",
		"image_host.breaker_timeout":          "IMAGE_HOST_BREAKER_TIMEOUT",
		"image_host.delete_retries":           "IMAGE_HOST_DELETE_RETRIES",
		"image_host.minio.endpoint":           "MINIO_ENDPOINT",
		"image_host.minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"image_host.minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"image_host.minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"image_host.minio.use_ssl":            "MINIO_USE_SSL",
		"image_host.minio.bucket":             "MINIO_BUCKET",
		"image_host.minio.region":             "MINIO_REGION",
		"image_host.minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"image_host.minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"image_host.minio.public_read":        "MINIO_PUBLIC_READ",
		"image_host.cloudinary.cloud_name":    "CLOUDINARY_CLOUD_NAME",
		"image_host.cloudinary.api_key":       "CLOUDINARY_API_KEY",
		"image_host.cloudinary.api_secret":    "CLOUDINARY_API_SECRET",
		"image_host.cloudinary.base_url":      "CLOUDINARY_BASE_URL",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.FrontendURL == "" {
		return errors.New("frontend url is required")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.JWT.AccessTokenTTL <= 0 || cfg.JWT.RefreshTokenTTL <= 0 {
		return errors.New("jwt token ttl must be positive")
	}
	if cfg.Portfolio.Limit <= 0 {
		return errors.New("portfolio limit must be positive")
	}
	if cfg.Portfolio.SlugMaxProbes <= 0 {
		return errors.New("slug max probes must be positive")
	}
	if cfg.Portfolio.SlugRetries <= 0 {
		return errors.New("slug retries must be positive")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}

	switch cfg.ImageHost.Driver {
	case ImageHostMinIO:
		m := cfg.ImageHost.MinIO
		if m.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if m.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if m.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if m.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	case ImageHostCloudinary:
		c := cfg.ImageHost.Cloudinary
		if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
			return errors.New("cloudinary cloud name, api key and api secret are required")
		}
	default:
		return fmt.Errorf("unknown image host driver %q", cfg.ImageHost.Driver)
	}
	return nil
}
