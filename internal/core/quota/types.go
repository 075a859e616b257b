package quota

import (
	"context"
	"time"

	"recipe-modifier/internal/pkg/common"
)

// dayLayout 額度週期（日曆日）的字串格式
const dayLayout = "2006-01-02"

// Day 日曆日，例如 "2025-03-14"
type Day string

// DayOf 以指定時區計算時間所屬的日曆日
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format(dayLayout))
}

// Record 使用者的額度紀錄，每位使用者僅一筆，跨日時歸零而非刪除
type Record struct {
	UserID string `json:"user_id"`
	Day    Day    `json:"day"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
}

// Usage getUsage 的結果
type Usage struct {
	Count     int `json:"count"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
	Day       Day `json:"day"`
}

// Decision checkAndIncrement 的結果
type Decision struct {
	UserID    string `json:"-"`
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Day       Day    `json:"day"`
}

// Err 額度已用完時返回 QuotaExceededError
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return common.NewQuotaExceededError(d.UserID, d.Limit)
}

// Store 額度紀錄的後端儲存
//
// IncrementIfBelow 必須是單一原子操作：若紀錄日期不是 day，先視為 count=0；
// 之後僅在 count < limit 時加一。返回操作後的紀錄與是否成功加一。
type Store interface {
	Load(ctx context.Context, userID string) (rec Record, found bool, err error)
	IncrementIfBelow(ctx context.Context, userID string, day Day, limit int) (rec Record, incremented bool, err error)
	Ping(ctx context.Context) error
	Close() error
}

// remaining 計算剩餘次數，上限調降時不會出現負數
func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
