package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yeisme/drivemini/pkg/internal/types"
)

// SearchFiles 按名称搜索文件与文件夹.
func (h *Handlers) SearchFiles(c *gin.Context) {
	var q types.SearchQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	resp, err := h.Search.Search(c.Request.Context(), &q)
	if err != nil {
		fail(c, err, "search failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchHistory 返回最近的搜索词.
func (h *Handlers) SearchHistory(c *gin.Context) {
	terms, err := h.Search.History(c.Request.Context())
	if err != nil {
		fail(c, err, "load search history failed")
		return
	}

	c.JSON(http.StatusOK, types.SearchHistoryResponse{Terms: terms})
}
