package gateway

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/log"
)

// Breaker 为 Gateway 的两个调用加熔断，熔断打开时直接返回 gobreaker.ErrOpenState.
type Breaker struct {
	gw quota.Gateway
	cb *gobreaker.CircuitBreaker
}

var _ quota.Gateway = (*Breaker)(nil)

// WithBreaker 按配置包装 gw，未启用时原样返回.
func WithBreaker(gw quota.Gateway, cfg configs.CircuitBreakerConfig) quota.Gateway {
	if !cfg.Enabled {
		return gw
	}

	logger := log.Component("gateway")

	settings := gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    cfg.Interval(),
		Timeout:     cfg.Timeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ShouldTrip(counts.Requests, counts.TotalFailures)
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &Breaker{gw: gw, cb: gobreaker.NewCircuitBreaker(settings)}
}

// isSuccessful 不存在与调用方取消不算存储故障.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, quota.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// State 返回熔断器当前状态.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) ListChildren(ctx context.Context, path string) (quota.Listing, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.gw.ListChildren(ctx, path)
	})
	if err != nil {
		return quota.Listing{}, err
	}

	return v.(quota.Listing), nil
}

func (b *Breaker) GetMetadata(ctx context.Context, path string) (quota.ObjectMeta, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.gw.GetMetadata(ctx, path)
	})
	if err != nil {
		return quota.ObjectMeta{}, err
	}

	return v.(quota.ObjectMeta), nil
}
