package portfolio

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"portify/internal/database"
	"portify/internal/errcode"
)

// Ledger 维护 accounts.portfolio_count。
// Reserve/Release 只接受调用方的事务句柄，计数与作品集行的增删因此一同提交或回滚。
type Ledger struct {
	limit int
}

func NewLedger(limit int) Ledger {
	return Ledger{limit: limit}
}

func (l Ledger) Limit() int { return l.limit }

// Reserve 以单条条件更新占用一个名额，并发创建不会越过上限。
func (l Ledger) Reserve(tx *gorm.DB, accountID uint) error {
	res := tx.Model(&database.Account{}).
		Where("id = ? AND portfolio_count < ?", accountID, l.limit).
		UpdateColumn("portfolio_count", gorm.Expr("portfolio_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("reserve portfolio slot: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var exists int64
	if err := tx.Model(&database.Account{}).Where("id = ?", accountID).Count(&exists).Error; err != nil {
		return fmt.Errorf("check account %d: %w", accountID, err)
	}
	if exists == 0 {
		return errcode.AccountNotFound
	}
	return errcode.QuotaExceeded.WithMessage(fmt.Sprintf("Portfolio limit reached (max %d)", l.limit))
}

// Release 归还一个名额，计数不会低于 0。
func (l Ledger) Release(tx *gorm.DB, accountID uint) error {
	err := tx.Model(&database.Account{}).
		Where("id = ? AND portfolio_count > 0", accountID).
		UpdateColumn("portfolio_count", gorm.Expr("portfolio_count - 1")).Error
	if err != nil {
		return fmt.Errorf("release portfolio slot: %w", err)
	}
	return nil
}

// Reconcile 用实际拥有的作品集数量覆盖计数，返回修正前后的值。
func Reconcile(ctx context.Context, db *gorm.DB, accountID uint) (before, after int, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc database.Account
		if err := tx.Select("id", "portfolio_count").First(&acc, accountID).Error; err != nil {
			return err
		}
		var owned int64
		if err := tx.Model(&database.Portfolio{}).Where("account_id = ?", accountID).Count(&owned).Error; err != nil {
			return err
		}
		before, after = acc.PortfolioCount, int(owned)
		if before == after {
			return nil
		}
		return tx.Model(&database.Account{}).Where("id = ?", accountID).
			UpdateColumn("portfolio_count", after).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile account %d: %w", accountID, err)
	}
	return before, after, nil
}

// ReconcileAll 修正所有账号的计数，返回被修正的账号数。
func ReconcileAll(ctx context.Context, db *gorm.DB) (int, error) {
	var ids []uint
	if err := db.WithContext(ctx).Model(&database.Account{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}
	fixed := 0
	for _, id := range ids {
		before, after, err := Reconcile(ctx, db, id)
		if err != nil {
			return fixed, err
		}
		if before != after {
			fixed++
		}
	}
	return fixed, nil
}
