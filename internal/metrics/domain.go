package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	portfoliosCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portify",
			Subsystem: "portfolio",
			Name:      "created_total",
			Help:      "成功创建的作品集总数。",
		},
	)

	portfoliosDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portify",
			Subsystem: "portfolio",
			Name:      "deleted_total",
			Help:      "已删除的作品集总数。",
		},
	)

	publicViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portify",
			Subsystem: "portfolio",
			Name:      "public_views_total",
			Help:      "公开作品集的访问次数。",
		},
	)

	quotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portify",
			Subsystem: "portfolio",
			Name:      "quota_rejections_total",
			Help:      "因配额已满被拒绝的创建请求数。",
		},
	)

	slugCollisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portify",
			Subsystem: "portfolio",
			Name:      "slug_collisions_total",
			Help:      "写入时命中 slug 唯一索引的次数。",
		},
		[]string{"outcome"},
	)

	imageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portify",
			Subsystem: "upload",
			Name:      "images_total",
			Help:      "图片上传结果计数。",
		},
		[]string{"kind", "result"},
	)
)

func PortfolioCreated() { portfoliosCreatedTotal.Inc() }
func PortfolioDeleted() { portfoliosDeletedTotal.Inc() }
func PublicView()       { publicViewsTotal.Inc() }
func QuotaRejected()    { quotaRejectionsTotal.Inc() }

// SlugCollision 记录一次唯一索引冲突；retried 为 false 表示重试已耗尽。
func SlugCollision(retried bool) {
	outcome := "exhausted"
	if retried {
		outcome = "retried"
	}
	slugCollisionsTotal.WithLabelValues(outcome).Inc()
}

// ImageUpload 记录一次上传，kind 为 avatar/portfolio-avatar/template。
func ImageUpload(kind, result string) {
	imageUploadsTotal.WithLabelValues(kind, result).Inc()
}
