// Package slug 负责从作品集名称生成 URL 安全且全局唯一的 slug。
package slug

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"portify/internal/database"
)

var (
	ErrEmptySlug     = errors.New("slug: name yields an empty slug")
	ErrSlugExhausted = errors.New("slug: no free suffix within probe limit")
)

// DefaultMaxProbes 限制 Unique 的后缀尝试次数。
const DefaultMaxProbes = 1000

// Generate 规范化名称：小写、去除 [a-z0-9 空白 -] 之外的字符、空白与连续连字符折叠为单个 "-"，首尾不留 "-"。
func Generate(name string) (string, error) {
	lowered := strings.TrimSpace(strings.ToLower(name))

	kept := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, lowered)

	joined := strings.Join(strings.Fields(kept), "-")

	var b strings.Builder
	b.Grow(len(joined))
	prevDash := false
	for _, r := range joined {
		if r == '-' {
			if prevDash {
				continue
			}
			prevDash = true
		} else {
			prevDash = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "", ErrEmptySlug
	}
	return out, nil
}

// Allocator 通过探测 portfolios 表寻找未占用的 slug。
// 它只读不写：并发创建之间的竞争由 slug 唯一索引兜底，调用方需处理 gorm.ErrDuplicatedKey。
type Allocator struct {
	db        *gorm.DB
	maxProbes int
}

func NewAllocator(db *gorm.DB, maxProbes int) *Allocator {
	if maxProbes <= 0 {
		maxProbes = DefaultMaxProbes
	}
	return &Allocator{db: db, maxProbes: maxProbes}
}

// WithDB 返回使用给定连接（通常是事务）的副本。
func (a *Allocator) WithDB(db *gorm.DB) *Allocator {
	return &Allocator{db: db, maxProbes: a.maxProbes}
}

// Unique 依次尝试 base、base-1、base-2…，excludeID 非零时忽略该作品集自身，便于改名时保留原 slug。
func (a *Allocator) Unique(ctx context.Context, name string, excludeID uint) (string, error) {
	base, err := Generate(name)
	if err != nil {
		return "", err
	}

	candidate := base
	for i := 0; i < a.maxProbes; i++ {
		if i > 0 {
			candidate = base + "-" + strconv.Itoa(i)
		}
		ok, err := a.Available(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: base %q after %d probes", ErrSlugExhausted, base, a.maxProbes)
}

// Available 判断 slug 是否未被其他作品集占用。
func (a *Allocator) Available(ctx context.Context, slug string, excludeID uint) (bool, error) {
	q := a.db.WithContext(ctx).Model(&database.Portfolio{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("probe slug %q: %w", slug, err)
	}
	return count == 0, nil
}
