// Package handle 提供 HTTP 请求处理器，业务逻辑委托给 service 包.
package handle

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/service"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/rule"
)

// Handlers 持有各业务服务，由应用层组装后注入路由.
type Handlers struct {
	Usage   *service.UsageService
	Files   *service.FileService
	Uploads *service.UploadService
	Search  *service.SearchService
	Note    *service.NoteService
}

// statusOf 将业务错误映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidPath),
		errors.Is(err, service.ErrNoFiles),
		errors.Is(err, service.ErrNoteTooLong):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrCapacityExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, quota.ErrRootListing):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录日志并写出错误响应.
func fail(c *gin.Context, err error, msg string) {
	status := statusOf(err)

	l := log.Ctx(c.Request.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Msg(msg)
	} else {
		l.Warn().Err(err).Msg(msg)
	}

	c.JSON(status, types.ErrorResponse{Error: err.Error()})
}

// bind 按 b 解析请求并执行 rule 校验，失败时写出 400 并返回 false.
func bind(c *gin.Context, obj any, b binding.Binding) bool {
	err := c.ShouldBindWith(obj, b)
	if err == nil {
		err = rule.ValidateStruct(obj)
	}

	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("invalid request")
		invalid(c, err)

		return false
	}

	return true
}

// invalid 写出 400，校验错误附带字段明细.
func invalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error(), Fields: rule.Errors(err)})
}

// bindURI 解析路径参数并校验.
func bindURI(c *gin.Context, obj any) bool {
	err := c.ShouldBindUri(obj)
	if err == nil {
		err = rule.ValidateStruct(obj)
	}

	if err != nil {
		invalid(c, err)
		return false
	}

	return true
}
