// Package router 将路径与 handle 包中的处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/drivemini/pkg/cache"
	"github.com/yeisme/drivemini/pkg/internal/handle"
)

// Register 在 /api/v1 下注册全部业务路由，rc 为 nil 时文件列表不做响应缓存.
func Register(engine *gin.Engine, h *handle.Handlers, rc *appcache.Cache) *gin.RouterGroup {
	v1 := engine.Group("/api/v1")

	RegisterUsageRoutes(v1, h)
	RegisterFilesRoutes(v1, h, rc)
	RegisterSearchRoutes(v1, h)
	RegisterNoteRoutes(v1, h)
	RegisterHealthCheckRoute(v1)
	RegisterSchedulerRoutes(v1)

	return v1
}
