package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivemini/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册 /health 与 /health/:component.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	g.GET("/health", handle.Health)
	g.GET("/health/:component", handle.HealthComponent)
}
