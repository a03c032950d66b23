package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivemini/pkg/internal/handle"
)

// RegisterNoteRoutes 注册共享笔记路由.
func RegisterNoteRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	note := g.Group("/note")
	{
		note.GET("", h.GetNote)
		note.PUT("", h.PutNote)
		note.GET("/stream", h.StreamNote)
	}
}
