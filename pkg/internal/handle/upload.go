package handle

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/service"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
)

// UploadFieldName multipart 中文件字段名.
const UploadFieldName = "files"

// capacityErrorResponse 容量不足时附带检查结论.
type capacityErrorResponse struct {
	Error    string         `json:"error"`
	Decision quota.Decision `json:"decision"`
}

// Upload 接收 multipart 上传，整批处理完成后返回任务状态.
func (h *Handlers) Upload(c *gin.Context) {
	var q types.UploadQuery
	if !bind(c, &q, binding.FormMultipart) {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("invalid multipart form")
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})

		return
	}

	headers := form.File[UploadFieldName]
	files := make([]service.UploadFile, 0, len(headers))

	for _, fh := range headers {
		files = append(files, service.UploadFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	task, err := h.Uploads.Upload(c.Request.Context(), q.Path, files)
	if err != nil {
		var ce *service.CapacityError
		if errors.As(err, &ce) {
			log.Ctx(c.Request.Context()).Warn().Str("signal", string(ce.Decision.Signal)).Msg(ce.Decision.Message)
			c.JSON(http.StatusInsufficientStorage, capacityErrorResponse{Error: err.Error(), Decision: ce.Decision})

			return
		}

		fail(c, err, "upload failed")

		return
	}

	c.JSON(http.StatusOK, task)
}

// UploadTask 查询上传任务状态.
func (h *Handlers) UploadTask(c *gin.Context) {
	var q types.UploadTaskQuery
	if !bindURI(c, &q) {
		return
	}

	task, err := h.Uploads.Task(c.Request.Context(), q.ID)
	if err != nil {
		fail(c, err, "get upload task failed")
		return
	}

	c.JSON(http.StatusOK, task)
}
