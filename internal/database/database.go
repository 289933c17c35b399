package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portify/internal/config"
)

// InitDatabase 打开 PostgreSQL 连接池并确认可达。
// TranslateError 让唯一约束冲突以 gorm.ErrDuplicatedKey 返回，服务层据此识别 slug、邮箱与名称冲突。
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         newGormLogger(cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}
	pool.SetMaxOpenConns(positiveOr(cfg.MaxOpenConns, 25))
	pool.SetMaxIdleConns(positiveOr(cfg.MaxIdleConns, 5))
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// newGormLogger 把 GORM 的 SQL 日志接到 slog 默认 handler 上。
func newGormLogger(cfg config.DatabaseConfig) logger.Interface {
	slow := cfg.SlowQuery
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	sink := slog.NewLogLogger(slog.Default().Handler().WithAttrs([]slog.Attr{slog.String("component", "gorm")}), slog.LevelWarn)
	return logger.New(sink, logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  ParseLogLevel(cfg.LogLevel),
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

// Migrate 建表并补齐索引。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// ParseLogLevel 未知值按 warn 处理。
func ParseLogLevel(level string) logger.LogLevel {
	levels := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"error":  logger.Error,
		"warn":   logger.Warn,
		"info":   logger.Info,
	}
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return logger.Warn
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
