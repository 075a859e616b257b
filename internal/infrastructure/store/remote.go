package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 託管資料庫上的 RPC 端點
const (
	rpcCheckAndIncrement = "/rest/v1/rpc/check_and_increment_ai_usage"
	rpcGetUsage          = "/rest/v1/rpc/get_ai_usage"
	healthPath           = "/rest/v1/"
)

// RemoteStore 透過託管資料庫的 REST RPC 保存額度紀錄
//
// 原子性由伺服器端函式保證（單一交易內完成條件更新）。
type RemoteStore struct {
	client *resty.Client
}

// RemoteOptions 遠端儲存選項
type RemoteOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// remoteRecord RPC 回應
type remoteRecord struct {
	UserID  string `json:"user_id"`
	Day     string `json:"day"`
	Count   int    `json:"count"`
	Limit   int    `json:"limit"`
	Allowed bool   `json:"allowed"`
}

// NewRemoteStore 創建遠端額度儲存
func NewRemoteStore(opts RemoteOptions) *RemoteStore {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("apikey", opts.APIKey).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", opts.APIKey)).
		SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	common.LogDebug("遠端額度儲存已初始化",
		zap.String("base_url", opts.BaseURL),
		zap.String("api_key", common.MaskSecret(opts.APIKey)),
	)

	return &RemoteStore{client: client}
}

// Load 讀取紀錄，回應為 null 表示沒有紀錄
func (s *RemoteStore) Load(ctx context.Context, userID string) (quota.Record, bool, error) {
	body, err := s.call(ctx, rpcGetUsage, map[string]interface{}{
		"p_user_id": userID,
	})
	if err != nil {
		return quota.Record{}, false, err
	}

	rec, found, err := decodeRemoteRecord(body)
	if err != nil || !found {
		return quota.Record{}, false, err
	}
	return rec.toRecord(userID), true, nil
}

// IncrementIfBelow 呼叫伺服器端條件加一
func (s *RemoteStore) IncrementIfBelow(ctx context.Context, userID string, day quota.Day, limit int) (quota.Record, bool, error) {
	body, err := s.call(ctx, rpcCheckAndIncrement, map[string]interface{}{
		"p_user_id": userID,
		"p_day":     string(day),
		"p_limit":   limit,
	})
	if err != nil {
		return quota.Record{}, false, err
	}

	rec, found, err := decodeRemoteRecord(body)
	if err != nil {
		return quota.Record{}, false, err
	}
	if !found {
		return quota.Record{}, false, fmt.Errorf("empty response from %s", rpcCheckAndIncrement)
	}
	return rec.toRecord(userID), rec.Allowed, nil
}

// Ping 檢查端點是否可達
func (s *RemoteStore) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		return fmt.Errorf("remote store unreachable: %w", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("remote store returned %d", resp.StatusCode())
	}
	return nil
}

// Close resty 客戶端無需釋放
func (s *RemoteStore) Close() error {
	return nil
}

func (s *RemoteStore) call(ctx context.Context, path string, payload map[string]interface{}) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}

	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("%s returned %d: %s", path, resp.StatusCode(), resp.String())
		if !retryableStatus(resp.StatusCode()) {
			return nil, quota.NonRetryable(err)
		}
		return nil, err
	}
	return resp.Body(), nil
}

// retryableStatus 5xx、408 與 429 可重試，其餘 4xx 為設定或請求錯誤
func retryableStatus(code int) bool {
	switch {
	case code >= http.StatusInternalServerError:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// decodeRemoteRecord 解析回應，支援單一物件或單元素陣列
func decodeRemoteRecord(body []byte) (remoteRecord, bool, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" || trimmed == "[]" {
		return remoteRecord{}, false, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var rows []remoteRecord
		if err := common.ParseJSONBytes([]byte(trimmed), &rows); err != nil {
			return remoteRecord{}, false, fmt.Errorf("failed to parse remote usage: %w", err)
		}
		if len(rows) == 0 {
			return remoteRecord{}, false, nil
		}
		return rows[0], true, nil
	}

	var rec remoteRecord
	if err := common.ParseJSONBytes([]byte(trimmed), &rec); err != nil {
		return remoteRecord{}, false, fmt.Errorf("failed to parse remote usage: %w", err)
	}
	return rec, true, nil
}

func (r remoteRecord) toRecord(userID string) quota.Record {
	if r.UserID != "" {
		userID = r.UserID
	}
	return quota.Record{
		UserID: userID,
		Day:    quota.Day(r.Day),
		Count:  r.Count,
		Limit:  r.Limit,
	}
}
