// Package context 在请求上下文中传递存储管理器与调度器，供健康检查、任务接口等横切处理器使用.
package context

import (
	"context"

	"github.com/yeisme/drivemini/pkg/internal/storage"
	"github.com/yeisme/drivemini/pkg/scheduler"
)

type (
	managerKey   struct{}
	schedulerKey struct{}
)

// WithStorageManager 将 Manager 存入 ctx.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// GetManager 取出 Manager，未注入时为 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(managerKey{}).(*storage.Manager)
	return mgr
}

// WithScheduler 将调度器存入 ctx.
func WithScheduler(ctx context.Context, sched *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, sched)
}

// GetScheduler 取出调度器，未注入时为 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	sched, _ := ctx.Value(schedulerKey{}).(*scheduler.Scheduler)
	return sched
}
