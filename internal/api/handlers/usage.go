package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HandleGetUsage 查詢今日額度，不消耗
func (h *Handler) HandleGetUsage(c *gin.Context) {
	id, ok := requireUserID(c)
	if !ok {
		return
	}

	usage, err := h.tracker.GetUsage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	setQuotaHeaders(c, usage.Limit, usage.Remaining)
	c.JSON(http.StatusOK, usage)
}

// HandleConsume 在送出 AI 修改請求前消耗一次額度
//
// 額度用完返回 429；儲存無法確認時返回 503 並拒絕請求。
func (h *Handler) HandleConsume(c *gin.Context) {
	id, ok := requireUserID(c)
	if !ok {
		return
	}

	decision, err := h.tracker.CheckAndIncrement(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	setQuotaHeaders(c, decision.Limit, decision.Remaining)
	if err := decision.Err(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

func setQuotaHeaders(c *gin.Context, limit, remaining int) {
	c.Header("X-Quota-Limit", strconv.Itoa(limit))
	c.Header("X-Quota-Remaining", strconv.Itoa(remaining))
}
