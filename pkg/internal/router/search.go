package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivemini/pkg/internal/handle"
)

// RegisterSearchRoutes 注册搜索路由.
func RegisterSearchRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	g.GET("/search", h.SearchFiles)
	g.GET("/search/history", h.SearchHistory)
}
