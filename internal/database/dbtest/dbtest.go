// Package dbtest 为各包测试提供隔离的内存 SQLite 数据库。
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portify/internal/database"
)

var opened atomic.Int64

// Open 返回一个独立的内存库（测试名加序号），已完成迁移，测试结束时关闭。
// 同一测试内多次调用得到互不相干的库。
// 单连接：事务内必须使用 tx，否则会自锁。
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, opened.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedAccount 创建一个普通账号。
func SeedAccount(t testing.TB, db *gorm.DB, email string) database.Account {
	t.Helper()
	acc := database.Account{
		GoogleID: "google-" + email,
		Email:    email,
		Name:     email,
		Role:     database.RoleUser,
	}
	if err := db.Create(&acc).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

// SeedTemplate 创建一个模板，active 决定是否可被作品集引用。
func SeedTemplate(t testing.TB, db *gorm.DB, name string, active, isDefault bool) database.Template {
	t.Helper()
	tpl := database.Template{
		Name:      name,
		Category:  "professional",
		IsActive:  active,
		IsDefault: isDefault,
	}
	tpl.Config = datatypes.NewJSONType(database.DefaultTemplateConfig())
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}
