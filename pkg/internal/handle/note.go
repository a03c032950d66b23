package handle

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
)

// noteEvent SSE 事件名.
const noteEvent = "note"

// GetNote 返回共享笔记并设置 ETag.
func (h *Handlers) GetNote(c *gin.Context) {
	n, err := h.Note.Get(c.Request.Context())
	if err != nil {
		fail(c, err, "get note failed")
		return
	}

	c.Header("ETag", n.ETag)
	c.JSON(http.StatusOK, n)
}

// PutNote 覆盖写入共享笔记，If-Match 只用于判断是否覆盖了他人的修改.
func (h *Handlers) PutNote(c *gin.Context) {
	var req types.PutNoteRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	resp, err := h.Note.Put(c.Request.Context(), req.Content, c.GetHeader("If-Match"))
	if err != nil {
		fail(c, err, "save note failed")
		return
	}

	c.Header("ETag", resp.ETag)
	c.JSON(http.StatusOK, resp)
}

// StreamNote 以 SSE 推送笔记：先发送当前内容，之后每次保存推送一次.
func (h *Handlers) StreamNote(c *gin.Context) {
	ctx := c.Request.Context()

	updates, err := h.Note.Stream(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("subscribe note updates failed")
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: err.Error()})

		return
	}

	current, err := h.Note.Get(ctx)
	if err != nil {
		fail(c, err, "get note failed")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(noteEvent, current)
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case n, ok := <-updates:
			if !ok {
				return false
			}

			c.SSEvent(noteEvent, n)

			return true
		case <-ctx.Done():
			return false
		}
	})
}
