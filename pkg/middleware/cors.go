package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivemini/pkg/configs"
)

// CORSMiddleware 按 AllowOrigins 放行跨域请求（为空时放行全部），并暴露笔记与缓存相关的响应头.
func CORSMiddleware(server configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if len(server.AllowOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = server.AllowOrigins
	}

	config.AllowHeaders = append(config.AllowHeaders, "If-Match", "If-None-Match", RequestIDHeader)
	config.ExposeHeaders = []string{"ETag", "X-Cache", RequestIDHeader}
	config.AllowFiles = true

	return cors.New(config)
}
