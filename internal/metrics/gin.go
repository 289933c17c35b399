package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 未命中任何路由的请求统一记为 unmatched，标签基数不随探测路径增长。
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portify",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "按路由与状态码统计的 HTTP 请求数。",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portify",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时（秒）。",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portify",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "正在处理的 HTTP 请求数。",
		},
	)
)

// GinMiddleware 记录每个请求的路由模板、状态码与耗时。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		started := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestSeconds.WithLabelValues(method, route).Observe(time.Since(started).Seconds())
	}
}

// Handler 暴露默认注册表，挂在 /metrics。
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
