package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Reconciler 按 cron 表达式定期执行 ReconcileAll，修复异常中断留下的计数漂移。
type Reconciler struct {
	db      *gorm.DB
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// NewReconciler 校验表达式并注册任务；返回的 Reconciler 需调用 Start。
// 上一轮未结束时跳过本轮。
func NewReconciler(db *gorm.DB, schedule string, logger *slog.Logger) (*Reconciler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		db:      db,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: 10 * time.Minute,
	}
	if _, err := r.cron.AddFunc(schedule, r.RunOnce); err != nil {
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Reconciler) Start() { r.cron.Start() }

// Stop 等待正在执行的任务结束。
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce 执行一轮校正，错误只记录日志。
func (r *Reconciler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	started := time.Now()
	fixed, err := ReconcileAll(ctx, r.db)
	if err != nil {
		r.logger.Error("portfolio count reconcile failed", slog.Any("error", err), slog.Int("fixed", fixed))
		return
	}
	r.logger.Info("portfolio count reconcile finished",
		slog.Int("fixed", fixed),
		slog.Duration("took", time.Since(started)),
	)
}
