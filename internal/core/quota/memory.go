package quota

import (
	"context"
	"sync"
	"time"

	"recipe-modifier/internal/pkg/common"

	"go.uber.org/zap"
)

// MemoryStore 單一程序內的額度儲存
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryEntry
	idleTTL time.Duration
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// memoryEntry 記憶體紀錄
type memoryEntry struct {
	record    Record
	touchedAt time.Time
}

// MemoryOptions 記憶體儲存選項
type MemoryOptions struct {
	IdleTTL         time.Duration // 超過此時間未使用的紀錄會被清除，0 表示永不清除
	CleanupInterval time.Duration // 清理間隔，0 表示不啟動清理協程
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]memoryEntry),
		idleTTL: opts.IdleTTL,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	if opts.IdleTTL > 0 && opts.CleanupInterval > 0 {
		go s.startCleanup(opts.CleanupInterval)
	}

	return s
}

// Load 讀取紀錄
func (s *MemoryStore) Load(ctx context.Context, userID string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[userID]
	return entry.record, ok, nil
}

// IncrementIfBelow 在鎖內完成跨日歸零與條件加一
func (s *MemoryStore) IncrementIfBelow(ctx context.Context, userID string, day Day, limit int) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[userID]
	if !ok || entry.record.Day != day {
		entry.record = Record{UserID: userID, Day: day}
	}
	entry.record.Limit = limit
	entry.touchedAt = s.now()

	incremented := false
	if entry.record.Count < limit {
		entry.record.Count++
		incremented = true
	}
	s.records[userID] = entry

	return entry.record, incremented, nil
}

// Ping 記憶體儲存永遠可用
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len 目前紀錄數
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// startCleanup 啟動清理閒置紀錄的協程
func (s *MemoryStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

// cleanup 清除閒置紀錄，返回清除數量
func (s *MemoryStore) cleanup() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	count := 0
	for userID, entry := range s.records {
		if entry.touchedAt.Before(cutoff) {
			delete(s.records, userID)
			count++
		}
	}

	if count > 0 {
		common.LogDebug("已清除閒置額度紀錄",
			zap.Int("count", count),
			zap.Int("remaining_size", len(s.records)),
		)
	}
	return count
}

// Close 停止清理協程
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
