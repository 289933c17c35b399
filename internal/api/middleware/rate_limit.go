package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateCounter 只需要事务管道；redis.UniversalClient 满足该接口。
type RateCounter interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// hourlyWindow 是按 UTC 整点切分的固定窗口计数器。
type hourlyWindow struct {
	rdb    RateCounter
	prefix string
	now    func() time.Time
}

// hit 在同一个 MULTI 中自增并续期，返回本窗口内的累计次数。
func (w hourlyWindow) hit(ctx context.Context, subject string) (int64, error) {
	key := fmt.Sprintf("%s:%s:%s", w.prefix, subject, w.now().UTC().Format("2006010215"))
	var incr *redis.IntCmd
	_, err := w.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, time.Hour)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// UploadRateLimit 按账号（未登录时按 IP）限制每小时上传次数；redis 不可用时放行。
func UploadRateLimit(client RateCounter, perHour int) gin.HandlerFunc {
	if client == nil || perHour <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	window := hourlyWindow{rdb: client, prefix: "rate:upload", now: time.Now}

	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if id, ok := AccountID(c); ok {
			subject = strconv.FormatUint(uint64(id), 10)
		}

		n, err := window.hit(c.Request.Context(), subject)
		switch {
		case err != nil:
			LoggerFromContext(c).Warn("upload rate counter unavailable", slog.Any("error", err))
		case n > int64(perHour):
			c.Header("Retry-After", strconv.Itoa(int(time.Hour.Seconds())))
			abortWithError(c, http.StatusTooManyRequests, "Upload rate limit exceeded, try again later")
			return
		}
		c.Next()
	}
}
