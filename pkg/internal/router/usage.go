package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivemini/pkg/internal/handle"
)

// RegisterUsageRoutes 注册用量与容量检查路由.
func RegisterUsageRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	usage := g.Group("/usage")
	{
		usage.GET("", h.GetUsage)
		usage.POST("/refresh", h.RefreshUsage)
		usage.POST("/validate", h.ValidateUpload)
		usage.GET("/history", h.UsageHistory)
	}
}
