package handlers

import (
	"errors"
	"net/http"
	"strings"

	"recipe-modifier/internal/api/middleware"
	"recipe-modifier/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// respondError 依錯誤類型輸出統一的錯誤響應
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "請求內容過大",
		})
		return
	}

	ce := common.AsCustomError(err)
	resp := ce.Response()
	status := common.StatusOf(ce)
	// 5xx 不回傳內部細節
	if status >= http.StatusInternalServerError {
		resp.Details = ""
	}
	c.AbortWithStatusJSON(status, resp)
}

// userID 讀取上游驗證層設定的使用者識別
func userID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(middleware.UserIDHeader))
}

// requireUserID 缺少使用者識別時返回 401
func requireUserID(c *gin.Context) (string, bool) {
	id := userID(c)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, common.ErrorResponse{
			Code:    common.ErrCodeUnauthorized,
			Message: common.ErrUnauthorized.Message,
			Details: "missing " + middleware.UserIDHeader + " header",
		})
		return "", false
	}
	return id, true
}

// wrapDecodeError 請求體解析錯誤轉為 400，超出大小限制原樣返回
func wrapDecodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return common.NewInvalidRequestError("invalid request body: %v", err)
}
