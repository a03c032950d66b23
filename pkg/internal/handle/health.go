package handle

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/drivemini/pkg/context"
	"github.com/yeisme/drivemini/pkg/internal/storage"
	"github.com/yeisme/drivemini/pkg/internal/types"
)

const healthTimeout = 2 * time.Second

var errNotInitialized = errors.New("client not initialized")

// probes 各组件的探测函数，组件未初始化时返回 errNotInitialized.
var probes = map[string]func(context.Context, *storage.Manager) error{
	"s3": func(ctx context.Context, m *storage.Manager) error {
		if m.S3 == nil || m.S3.Client == nil {
			return errNotInitialized
		}

		return m.S3.HealthCheck(ctx)
	},
	"db": func(ctx context.Context, m *storage.Manager) error {
		if m.DB == nil || m.DB.DB == nil {
			return errNotInitialized
		}

		return m.DB.HealthCheck(ctx)
	},
	"kv": func(ctx context.Context, m *storage.Manager) error {
		if m.KV == nil || m.KV.KVStore == nil {
			return errNotInitialized
		}

		_, err := m.KV.Exists(ctx, "health/ping")

		return err
	},
	"mq": func(_ context.Context, m *storage.Manager) error {
		if m.MQ == nil {
			return errNotInitialized
		}

		return nil
	},
}

func probe(ctx context.Context, mgr *storage.Manager, component string) types.HealthResponse {
	res := types.HealthResponse{Component: component, Status: "ok"}

	err := errNotInitialized
	if mgr != nil {
		ctx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()

		err = probes[component](ctx, mgr)
	}

	if err != nil {
		res.Status = "unhealthy"
		res.Error = component + ": " + err.Error()
	}

	return res
}

// HealthComponent 检查单个组件，路径参数 component 取 s3、db、kv、mq.
func HealthComponent(c *gin.Context) {
	component := c.Param("component")
	if _, ok := probes[component]; !ok {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "unknown component " + component})
		return
	}

	res := probe(c.Request.Context(), ctxPkg.GetManager(c.Request.Context()), component)
	if res.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Health 依次检查所有组件，任一异常时返回 503.
func Health(c *gin.Context) {
	mgr := ctxPkg.GetManager(c.Request.Context())
	summary := types.HealthSummary{Status: "ok"}

	for _, name := range slices.Sorted(maps.Keys(probes)) {
		res := probe(c.Request.Context(), mgr, name)
		if res.Status != "ok" {
			summary.Status = "degraded"
		}

		summary.Components = append(summary.Components, res)
	}

	status := http.StatusOK
	if summary.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, summary)
}
