// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/jobs"
	"github.com/yeisme/drivemini/pkg/internal/router"
	"github.com/yeisme/drivemini/pkg/internal/storage"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/metrics"
	"github.com/yeisme/drivemini/pkg/middleware"
	"github.com/yeisme/drivemini/pkg/rule"
	"github.com/yeisme/drivemini/pkg/scheduler"
	"github.com/yeisme/drivemini/pkg/tracing"
)

// shutdownTimeout 优雅退出的最长等待时间.
const shutdownTimeout = 10 * time.Second

// App 持有 HTTP 引擎及其依赖的全部资源.
type App struct {
	Engine *gin.Engine

	config   *configs.AppConfig
	manager  *storage.Manager
	services *Services
	sched    *scheduler.Scheduler
	logger   zerolog.Logger
}

// NewApp 按顺序初始化追踪、监控、存储、服务、定时任务与路由.
// 调用前需已执行 configs.InitConfig.
func NewApp(ctx context.Context) (*App, error) {
	cfg := configs.GetConfig()
	logger := log.Component("app")

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	// gin 的 binding 与 rule 共用同一个校验器
	_ = rule.Engine()

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	services, err := NewServices(ctx, cfg, manager)
	if err != nil {
		_ = manager.Close()
		return nil, err
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(ctx, sched, services.Usage, cfg.Quota); err != nil {
		_ = sched.Shutdown()
		_ = manager.Close()

		return nil, fmt.Errorf("register jobs: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(cfg.Server),
	)

	if cfg.Server.GzipLevel != 0 {
		// SSE 需要逐条刷新，不能压缩
		engine.Use(gzip.Gzip(cfg.Server.GzipLevel, gzip.WithExcludedPaths([]string{"/api/v1/note/stream"})))
	}

	engine.Use(
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker),
		middleware.StorageMiddleware(manager),
		middleware.SchedulerMiddleware(sched),
	)

	if err := metrics.StartMetricsServer(cfg.Metrics, engine); err != nil {
		logger.Warn().Err(err).Msg("metrics endpoint disabled")
	}

	router.Register(engine, services.Handlers(), services.ResponseCache)

	return &App{
		Engine:   engine,
		config:   cfg,
		manager:  manager,
		services: services,
		sched:    sched,
		logger:   logger,
	}, nil
}

// Run 启动定时任务与 HTTP 服务，ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	a.sched.Start()

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", srv.Addr).Str("version", configs.AppVersion).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			_ = a.Close(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	a.logger.Info().Msg("shutting down")

	return errors.Join(srv.Shutdown(shutdownCtx), a.Close(shutdownCtx))
}

// Close 释放定时任务、追踪与存储资源.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.sched != nil {
		errs = append(errs, a.sched.Shutdown())
	}

	errs = append(errs, tracing.ShutdownTracer(ctx), a.manager.Close())

	return errors.Join(errs...)
}
