// Package portfolio 实现作品集的增删改查、slug 分配与配额记账。
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"portify/internal/database"
	"portify/internal/errcode"
	"portify/internal/metrics"
	"portify/internal/slug"
)

// TemplateResolver 解析作品集引用的模板；缺失时返回 errcode.TemplateNotFound。
type TemplateResolver interface {
	Lookup(ctx context.Context, id uint) (*database.Template, error)
	Default(ctx context.Context) (*database.Template, error)
}

type Options struct {
	Limit       int
	SlugRetries int
	Logger      *slog.Logger
}

// Service 的所有写操作都在单个事务中完成：作品集行、slug 与账号计数要么一起生效，要么都不生效。
type Service struct {
	db        *gorm.DB
	slugs     *slug.Allocator
	templates TemplateResolver
	ledger    Ledger
	retries   int
	logger    *slog.Logger
}

func NewService(db *gorm.DB, slugs *slug.Allocator, templates TemplateResolver, opts Options) *Service {
	if opts.SlugRetries <= 0 {
		opts.SlugRetries = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		db:        db,
		slugs:     slugs,
		templates: templates,
		ledger:    NewLedger(opts.Limit),
		retries:   opts.SlugRetries,
		logger:    opts.Logger,
	}
}

// Profile 是 /portfolio/me 的返回值。
type Profile struct {
	User       AccountSummary       `json:"user"`
	Portfolios []database.Portfolio `json:"portfolios"`
	Count      int                  `json:"portfolioCount"`
	Limit      int                  `json:"portfolioLimit"`
}

type AccountSummary struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// WithTemplate 组合作品集与其模板。
type WithTemplate struct {
	Portfolio *database.Portfolio `json:"portfolio"`
	Template  *database.Template  `json:"template"`
}

// GetProfile 返回账号摘要与其全部作品集（新建在前）。
func (s *Service) GetProfile(ctx context.Context, accountID uint) (*Profile, error) {
	var acc database.Account
	err := s.db.WithContext(ctx).
		Preload("Portfolios", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		}).
		First(&acc, accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.AccountNotFound
		}
		return nil, fmt.Errorf("load profile %d: %w", accountID, err)
	}
	portfolios := acc.Portfolios
	if portfolios == nil {
		portfolios = []database.Portfolio{}
	}
	return &Profile{
		User:       AccountSummary{ID: acc.ID, Name: acc.Name, Email: acc.Email, Avatar: acc.Avatar},
		Portfolios: portfolios,
		Count:      acc.PortfolioCount,
		Limit:      s.ledger.Limit(),
	}, nil
}

// Create 校验模板、占用配额、分配 slug 并写入作品集。
// 并发创建撞上 slug 唯一索引时整体重试，超过次数返回 errcode.SlugConflict。
func (s *Service) Create(ctx context.Context, accountID uint, in CreateInput) (*database.Portfolio, error) {
	tpl, err := s.resolveTemplate(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		p := in.model(accountID, tpl.ID)
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.ledger.Reserve(tx, accountID); err != nil {
				return err
			}
			allocated, err := s.slugs.WithDB(tx).Unique(ctx, p.Name, 0)
			if err != nil {
				return err
			}
			p.Slug = allocated
			return tx.Create(&p).Error
		})
		if err == nil {
			metrics.PortfolioCreated()
			return &p, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= s.retries {
			break
		}
		metrics.SlugCollision(true)
		s.logger.Info("slug collision on create, retrying",
			slog.Uint64("account_id", uint64(accountID)),
			slog.Int("attempt", attempt),
		)
	}

	if errors.Is(err, errcode.QuotaExceeded) {
		metrics.QuotaRejected()
	}
	return nil, translate(err, "create portfolio")
}

// Get 只返回属于 accountID 的作品集；不存在与无权访问返回同一个错误。
func (s *Service) Get(ctx context.Context, accountID, portfolioID uint) (*database.Portfolio, error) {
	p, err := findOwned(s.db.WithContext(ctx), accountID, portfolioID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetWithTemplate 同 Get，并附带引用的模板。
func (s *Service) GetWithTemplate(ctx context.Context, accountID, portfolioID uint) (*WithTemplate, error) {
	p, err := s.Get(ctx, accountID, portfolioID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.Lookup(ctx, p.TemplateID)
	if err != nil {
		return nil, err
	}
	return &WithTemplate{Portfolio: p, Template: tpl}, nil
}

// Update 局部更新。改名会重新分配 slug（排除自身），更换模板需目标模板存在且启用。
func (s *Service) Update(ctx context.Context, accountID, portfolioID uint, in UpdateInput) (*database.Portfolio, error) {
	current, err := s.Get(ctx, accountID, portfolioID)
	if err != nil {
		return nil, err
	}
	if in.TemplateID != nil && *in.TemplateID != current.TemplateID {
		if _, err := s.requireActive(ctx, *in.TemplateID); err != nil {
			return nil, err
		}
	}
	var newName string
	if in.Name != nil {
		newName = strings.TrimSpace(*in.Name)
		if newName == "" {
			return nil, errcode.InvalidInput.WithMessage("Portfolio name is required")
		}
	}

	var out *database.Portfolio
	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			p, err := findOwned(tx, accountID, portfolioID)
			if err != nil {
				return err
			}
			updates := in.changes()
			if in.Name != nil && newName != p.Name {
				allocated, err := s.slugs.WithDB(tx).Unique(ctx, newName, p.ID)
				if err != nil {
					return err
				}
				updates["name"] = newName
				updates["slug"] = allocated
			}
			if len(updates) > 0 {
				if err := tx.Model(p).Updates(updates).Error; err != nil {
					return err
				}
			}
			out, err = findOwned(tx, accountID, portfolioID)
			return err
		})
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= s.retries {
			break
		}
		metrics.SlugCollision(true)
	}
	return nil, translate(err, "update portfolio")
}

// Delete 删除作品集并归还配额，返回被删除的文档。
func (s *Service) Delete(ctx context.Context, accountID, portfolioID uint) (*database.Portfolio, error) {
	var deleted *database.Portfolio
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findOwned(tx, accountID, portfolioID)
		if err != nil {
			return err
		}
		res := tx.Where("id = ? AND account_id = ?", p.ID, accountID).Delete(&database.Portfolio{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errcode.PortfolioNotFound
		}
		if err := s.ledger.Release(tx, accountID); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, translate(err, "delete portfolio")
	}
	metrics.PortfolioDeleted()
	return deleted, nil
}

// GetPublicBySlug 返回公开作品集并把浏览数加一；计数失败只记录日志，不影响读取。
func (s *Service) GetPublicBySlug(ctx context.Context, slugValue string) (*database.Portfolio, error) {
	var p database.Portfolio
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_public = ?", slugValue, true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.PublicNotFound
		}
		return nil, fmt.Errorf("load public portfolio %q: %w", slugValue, err)
	}

	err = s.db.WithContext(ctx).Model(&database.Portfolio{}).
		Where("id = ?", p.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		s.logger.Warn("increment view count failed",
			slog.Uint64("portfolio_id", uint64(p.ID)),
			slog.Any("error", err),
		)
	} else {
		p.ViewCount++
		metrics.PublicView()
	}
	return &p, nil
}

// ListByTemplate 返回引用该模板的公开作品集，新建在前。
func (s *Service) ListByTemplate(ctx context.Context, templateID uint) ([]database.Portfolio, error) {
	portfolios := []database.Portfolio{}
	err := s.db.WithContext(ctx).
		Where("template_id = ? AND is_public = ?", templateID, true).
		Order("created_at DESC").Order("id DESC").
		Find(&portfolios).Error
	if err != nil {
		return nil, fmt.Errorf("list portfolios for template %d: %w", templateID, err)
	}
	return portfolios, nil
}

// CheckSlugAvailability 判断 slug 是否可用，excludeID 为调用方自己的作品集。
func (s *Service) CheckSlugAvailability(ctx context.Context, slugValue string, excludeID uint) (bool, error) {
	return s.slugs.Available(ctx, slugValue, excludeID)
}

// SetAvatar 只改写 personalInfo.avatar。
func (s *Service) SetAvatar(ctx context.Context, accountID, portfolioID uint, url string) (*database.Portfolio, error) {
	current, err := s.Get(ctx, accountID, portfolioID)
	if err != nil {
		return nil, err
	}
	info := current.PersonalInfo.Data()
	info.Avatar = url
	return s.Update(ctx, accountID, portfolioID, UpdateInput{PersonalInfo: &info})
}

func (s *Service) resolveTemplate(ctx context.Context, templateID uint) (*database.Template, error) {
	if templateID == 0 {
		return s.templates.Default(ctx)
	}
	return s.requireActive(ctx, templateID)
}

func (s *Service) requireActive(ctx context.Context, templateID uint) (*database.Template, error) {
	tpl, err := s.templates.Lookup(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, errcode.TemplateInactive
	}
	return tpl, nil
}

func findOwned(db *gorm.DB, accountID, portfolioID uint) (*database.Portfolio, error) {
	var p database.Portfolio
	err := db.Where("id = ? AND account_id = ?", portfolioID, accountID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.PortfolioNotFound
		}
		return nil, fmt.Errorf("load portfolio %d: %w", portfolioID, err)
	}
	return &p, nil
}

// translate 把存储层与 slug 包的错误映射为业务错误。
func translate(err error, op string) error {
	var coded *errcode.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, slug.ErrEmptySlug):
		return errcode.EmptySlug.Wrap(err)
	case errors.Is(err, slug.ErrSlugExhausted):
		return errcode.SlugExhausted.Wrap(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		metrics.SlugCollision(false)
		return errcode.SlugConflict.Wrap(err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
