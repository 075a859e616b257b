package handlers

import (
	"net/http"

	"recipe-modifier/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CompareRequest 食譜比對請求
type CompareRequest struct {
	Original *common.Recipe `json:"original"`
	Modified *common.Recipe `json:"modified"`
}

// HandleCompare 比對原始與 AI 修改後的食譜
//
// 帶有 X-User-ID 時附上剩餘額度快照，比對本身不消耗額度。
func (h *Handler) HandleCompare(c *gin.Context) {
	var req CompareRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		respondError(c, wrapDecodeError(err))
		return
	}

	report, err := h.assembler.Compare(c.Request.Context(), userID(c), req.Original, req.Modified)
	if err != nil {
		common.LogWarn("食譜比對失敗",
			zap.String("original_id", recipeID(req.Original)),
			zap.String("modified_id", recipeID(req.Modified)),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func recipeID(r *common.Recipe) string {
	if r == nil {
		return ""
	}
	return r.ID
}
