package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// ErrHostUnavailable 表示图床连续失败后熔断，请求未发出。
var ErrHostUnavailable = errors.New("image host temporarily unavailable")

// ResilientOptions 控制熔断与删除重试。
type ResilientOptions struct {
	Name          string
	MaxFailures   int
	OpenTimeout   time.Duration
	DeleteRetries int
	Logger        *slog.Logger
}

// ResilientHost 给任意 ImageHost 加上熔断；删除是幂等的，失败时按指数退避重试。
// 上传不重试：请求体只能读取一次。
type ResilientHost struct {
	next          ImageHost
	breaker       *gobreaker.CircuitBreaker
	deleteRetries uint64
	newBackOff    func() backoff.BackOff
}

func NewResilientHost(next ImageHost, opts ResilientOptions) *ResilientHost {
	if opts.Name == "" {
		opts.Name = "image-host"
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.DeleteRetries < 0 {
		opts.DeleteRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger
	maxFailures := uint32(opts.MaxFailures)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("image host breaker state change",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &ResilientHost{
		next:          next,
		breaker:       breaker,
		deleteRetries: uint64(opts.DeleteRetries),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return b
		},
	}
}

func (h *ResilientHost) UploadImage(ctx context.Context, up Upload) (*Image, error) {
	out, err := h.breaker.Execute(func() (interface{}, error) {
		return h.next.UploadImage(ctx, up)
	})
	if err != nil {
		return nil, translateBreakerErr(err)
	}
	return out.(*Image), nil
}

func (h *ResilientHost) DeleteImage(ctx context.Context, publicID string) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(h.newBackOff(), h.deleteRetries), ctx)
	err := backoff.Retry(func() error {
		_, err := h.breaker.Execute(func() (interface{}, error) {
			return nil, h.next.DeleteImage(ctx, publicID)
		})
		if isBreakerErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	return translateBreakerErr(err)
}

// State 暴露熔断器状态，便于日志与测试。
func (h *ResilientHost) State() gobreaker.State {
	return h.breaker.State()
}

func isBreakerErr(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func translateBreakerErr(err error) error {
	if err == nil {
		return nil
	}
	if isBreakerErr(err) {
		return fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}
	return err
}
