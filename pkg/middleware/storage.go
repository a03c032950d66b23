package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/drivemini/pkg/context"
	"github.com/yeisme/drivemini/pkg/internal/storage"
	"github.com/yeisme/drivemini/pkg/scheduler"
)

// StorageMiddleware 将存储管理器注入请求 context，供健康检查读取.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxPkg.WithStorageManager(c.Request.Context(), manager))
		c.Next()
	}
}

// SchedulerMiddleware 将调度器注入请求 context，供任务接口读取.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxPkg.WithScheduler(c.Request.Context(), sched))
		c.Next()
	}
}
