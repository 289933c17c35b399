package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"portify/internal/account"
	"portify/internal/config"
	"portify/internal/database"
	"portify/internal/errcode"
	"portify/internal/portfolio"
)

func main() {
	var (
		promote   = flag.String("promote", "", "授予管理员角色的账号邮箱")
		demote    = flag.String("demote", "", "撤销管理员角色的账号邮箱")
		reconcile = flag.Bool("reconcile", false, "按实际作品集数量修正所有账号的 portfolio_count")
		dbHost    = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort    = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName    = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
	)
	flag.Parse()

	email := strings.TrimSpace(*promote)
	role := database.RoleAdmin
	if email == "" && strings.TrimSpace(*demote) != "" {
		email = strings.TrimSpace(*demote)
		role = database.RoleUser
	}
	if email == "" && !*reconcile {
		log.Fatal("nothing to do: pass --promote <email>, --demote <email> or --reconcile")
	}

	_ = godotenv.Load()
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}
	if h := strings.TrimSpace(*dbHost); h != "" {
		dbCfg.Host = h
	}
	if *dbPort > 0 {
		dbCfg.Port = *dbPort
	}
	if n := strings.TrimSpace(*dbName); n != "" {
		dbCfg.Name = n
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	ctx := context.Background()

	if email != "" {
		acc, err := account.NewService(db).GetByEmail(ctx, email)
		if errors.Is(err, errcode.AccountNotFound) {
			log.Fatalf("account %q not found（需先通过 Google 登录一次）", email)
		}
		if err != nil {
			log.Fatalf("query account: %v", err)
		}
		if err := db.Model(acc).Update("role", role).Error; err != nil {
			log.Fatalf("update role: %v", err)
		}
		fmt.Printf("账号 %s（ID %d）角色已设置为 %s\n", acc.Email, acc.ID, role)
	}

	if *reconcile {
		fixed, err := portfolio.ReconcileAll(ctx, db)
		if err != nil {
			log.Fatalf("reconcile portfolio counts: %v", err)
		}
		fmt.Printf("已校正 %d 个账号的作品集计数\n", fixed)
	}
}
