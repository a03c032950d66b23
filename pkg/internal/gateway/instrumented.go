package gateway

import (
	"context"
	"errors"

	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/metrics"
)

type instrumented struct {
	gw quota.Gateway
}

// Instrumented 为每次调用记录 drivemini_gateway_calls_total{op,result}.
func Instrumented(gw quota.Gateway) quota.Gateway {
	return &instrumented{gw: gw}
}

func (i *instrumented) ListChildren(ctx context.Context, path string) (quota.Listing, error) {
	l, err := i.gw.ListChildren(ctx, path)
	metrics.GatewayCalls.WithLabelValues("list", result(err)).Inc()

	return l, err
}

func (i *instrumented) GetMetadata(ctx context.Context, path string) (quota.ObjectMeta, error) {
	m, err := i.gw.GetMetadata(ctx, path)
	metrics.GatewayCalls.WithLabelValues("stat", result(err)).Inc()

	return m, err
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, quota.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
