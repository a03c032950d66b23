package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yeisme/drivemini/pkg/internal/types"
)

// GetUsage 返回缓存中的用量快照，过期时重新估算.
func (h *Handlers) GetUsage(c *gin.Context) {
	resp, err := h.Usage.Current(c.Request.Context())
	if err != nil {
		fail(c, err, "get usage failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RefreshUsage 跳过缓存重新估算.
func (h *Handlers) RefreshUsage(c *gin.Context) {
	resp, err := h.Usage.Refresh(c.Request.Context())
	if err != nil {
		fail(c, err, "refresh usage failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ValidateUpload 上传前容量检查，用量不可用时返回 signal=unknown.
func (h *Handlers) ValidateUpload(c *gin.Context) {
	var req types.ValidateUploadRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	c.JSON(http.StatusOK, h.Usage.Validate(c.Request.Context(), req.Sizes))
}

// UsageHistory 返回持久化的用量快照.
func (h *Handlers) UsageHistory(c *gin.Context) {
	var q types.UsageHistoryQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	resp, err := h.Usage.History(c.Request.Context(), q.Limit)
	if err != nil {
		fail(c, err, "list usage history failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}
