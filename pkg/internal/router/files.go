package router

import (
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/drivemini/pkg/cache"
	"github.com/yeisme/drivemini/pkg/internal/handle"
	"github.com/yeisme/drivemini/pkg/middleware"
)

// RegisterFilesRoutes 注册文件浏览、上传与文件夹路由.
func RegisterFilesRoutes(g *gin.RouterGroup, h *handle.Handlers, rc *appcache.Cache) {
	list := []gin.HandlerFunc{h.ListFiles}
	if rc != nil {
		list = append([]gin.HandlerFunc{middleware.CacheMiddleware(middleware.DefaultCacheConfig(rc))}, list...)
	}

	files := g.Group("/files")
	{
		files.GET("", list...)
		files.DELETE("", h.DeleteFile)
		files.GET("/download", h.Download)
		files.PUT("/content", h.PutContent)

		// 上传
		files.POST("/upload", h.Upload)
		files.GET("/uploads/:id", h.UploadTask)
	}

	g.POST("/folders", h.CreateFolder)
}
