package quota

import "time"

// Clock 提供額度判定使用的「今天」，不採用客戶端傳入的時間
type Clock interface {
	Now() time.Time
}

// ClockFunc 將函式轉為 Clock
type ClockFunc func() time.Time

// Now 實現 Clock 介面
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock 系統時間
type SystemClock struct{}

// Now 實現 Clock 介面
func (SystemClock) Now() time.Time {
	return time.Now()
}
