package handle

import (
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yeisme/drivemini/pkg/internal/types"
)

// ListFiles 列出目录的直接子项.
func (h *Handlers) ListFiles(c *gin.Context) {
	var q types.ListFilesQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	resp, err := h.Files.List(c.Request.Context(), q.Path)
	if err != nil {
		fail(c, err, "list files failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateFolder 创建文件夹.
func (h *Handlers) CreateFolder(c *gin.Context) {
	var req types.CreateFolderRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	resp, err := h.Files.CreateFolder(c.Request.Context(), &req)
	if err != nil {
		fail(c, err, "create folder failed")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// DeleteFile 删除文件，路径以 "/" 结尾时删除整个文件夹.
func (h *Handlers) DeleteFile(c *gin.Context) {
	var q types.PathQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	resp, err := h.Files.Delete(c.Request.Context(), q.Path)
	if err != nil {
		fail(c, err, "delete failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Download 返回预签名链接；inline=1 时直接输出文件内容.
func (h *Handlers) Download(c *gin.Context) {
	var q types.DownloadQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	if !q.Inline {
		resp, err := h.Files.DownloadURL(c.Request.Context(), q.Path)
		if err != nil {
			fail(c, err, "presign download failed")
			return
		}

		c.JSON(http.StatusOK, resp)

		return
	}

	rc, info, err := h.Files.Open(c.Request.Context(), q.Path)
	if err != nil {
		fail(c, err, "open file failed")
		return
	}
	defer rc.Close()

	extra := map[string]string{
		"Content-Disposition": "inline; filename=" + strconv.Quote(path.Base(q.Path)),
	}
	if info.ETag != "" {
		extra["ETag"] = strconv.Quote(info.ETag)
	}

	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, extra)
}

// PutContent 覆盖保存文本文件.
func (h *Handlers) PutContent(c *gin.Context) {
	var req types.PutContentRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	resp, err := h.Files.PutContent(c.Request.Context(), &req)
	if err != nil {
		fail(c, err, "save content failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}
