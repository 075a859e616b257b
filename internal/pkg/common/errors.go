package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼判斷是否為同一類錯誤
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Response 轉換為 API 錯誤響應
func (e *CustomError) Response() ErrorResponse {
	resp := ErrorResponse{Code: e.Code, Message: e.Message}
	if e.Err != nil {
		resp.Details = e.Err.Error()
	}
	return resp
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeInvalidRecipe   = "INVALID_RECIPE"    // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeQuotaExceeded   = "QUOTA_EXCEEDED"    // 429
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError         = "INTERNAL_ERROR"          // 500
	ErrCodeServiceUnavailable    = "SERVICE_UNAVAILABLE"     // 503
	ErrCodeQuotaStoreUnavailable = "QUOTA_STORE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout        = "GATEWAY_TIMEOUT"         // 504
)

// 預定義錯誤，僅用於 errors.Is 比對
var (
	ErrInvalidRequest        = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrInvalidRecipe         = NewError(ErrCodeInvalidRecipe, "食譜資料無效", http.StatusBadRequest, nil)
	ErrUnauthorized          = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrNotFound              = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrQuotaExceeded         = NewError(ErrCodeQuotaExceeded, "今日 AI 修改次數已用完", http.StatusTooManyRequests, nil)
	ErrTooManyRequests       = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrInternalError         = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrQuotaStoreUnavailable = NewError(ErrCodeQuotaStoreUnavailable, "無法確認使用額度", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout        = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)
)

// NewInvalidRecipeError 食譜輸入格式錯誤，不重試
func NewInvalidRecipeError(format string, args ...interface{}) *CustomError {
	return NewError(ErrCodeInvalidRecipe, ErrInvalidRecipe.Message, http.StatusBadRequest, fmt.Errorf(format, args...))
}

// NewInvalidRequestError 請求參數錯誤
func NewInvalidRequestError(format string, args ...interface{}) *CustomError {
	return NewError(ErrCodeInvalidRequest, ErrInvalidRequest.Message, http.StatusBadRequest, fmt.Errorf(format, args...))
}

// NewQuotaExceededError 額度已確認耗盡，次日前不應重試
func NewQuotaExceededError(userID string, limit int) *CustomError {
	return NewError(ErrCodeQuotaExceeded, ErrQuotaExceeded.Message, http.StatusTooManyRequests,
		fmt.Errorf("user %s reached daily limit of %d", userID, limit))
}

// NewQuotaStoreUnavailableError 額度儲存不可用，拒絕請求（fail closed）
func NewQuotaStoreUnavailableError(err error) *CustomError {
	return NewError(ErrCodeQuotaStoreUnavailable, ErrQuotaStoreUnavailable.Message, http.StatusServiceUnavailable, err)
}

// StatusOf 取得錯誤對應的 HTTP 狀態碼
func StatusOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Status != 0 {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// AsCustomError 將任意錯誤轉換為 CustomError
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return NewError(ErrCodeInternalError, ErrInternalError.Message, http.StatusInternalServerError, err)
}
