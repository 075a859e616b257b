package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/infrastructure/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// UsageRecord 額度紀錄資料表，每位使用者一列
type UsageRecord struct {
	UserID     string `gorm:"type:varchar(255);primaryKey"`
	Day        string `gorm:"type:varchar(10);not null"`
	Count      int    `gorm:"not null"`
	DailyLimit int    `gorm:"not null"`
	UpdatedAt  time.Time
}

// TableName 資料表名稱
func (UsageRecord) TableName() string {
	return "ai_usage"
}

func (r UsageRecord) toRecord() quota.Record {
	return quota.Record{
		UserID: r.UserID,
		Day:    quota.Day(r.Day),
		Count:  r.Count,
		Limit:  r.DailyLimit,
	}
}

// SQLStore 以關聯式資料庫保存額度紀錄
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL 依設定開啟資料庫連線
func OpenSQL(cfg config.SQLConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Dialect == "sqlite" {
		// SQLite 只允許單一寫入者，共用一條連線避免 database is locked
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQLStore 創建資料庫額度儲存，autoMigrate 為 true 時建立資料表
func NewSQLStore(db *gorm.DB, autoMigrate bool) (*SQLStore, error) {
	if autoMigrate {
		if err := db.AutoMigrate(&UsageRecord{}); err != nil {
			return nil, fmt.Errorf("failed to migrate ai_usage: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

// Load 讀取紀錄
func (s *SQLStore) Load(ctx context.Context, userID string) (quota.Record, bool, error) {
	var row UsageRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return quota.Record{}, false, nil
	}
	if err != nil {
		return quota.Record{}, false, fmt.Errorf("load usage: %w", err)
	}
	return row.toRecord(), true, nil
}

// IncrementIfBelow 以條件 UPDATE 完成跨日歸零與加一
//
// WHERE 條件保證同一天內 count 不會超過 limit；並發的更新由資料列鎖序列化。
func (s *SQLStore) IncrementIfBelow(ctx context.Context, userID string, day quota.Day, limit int) (quota.Record, bool, error) {
	var (
		row         UsageRecord
		incremented bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := UsageRecord{UserID: userID, Day: string(day), Count: 0, DailyLimit: limit}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seed usage: %w", err)
		}

		res := tx.Model(&UsageRecord{}).
			Where("user_id = ? AND (day <> ? OR count < ?)", userID, string(day), limit).
			Updates(map[string]interface{}{
				"count":       gorm.Expr("CASE WHEN day <> ? THEN 1 ELSE count + 1 END", string(day)),
				"day":         string(day),
				"daily_limit": limit,
			})
		if res.Error != nil {
			return fmt.Errorf("increment usage: %w", res.Error)
		}
		incremented = res.RowsAffected == 1

		return tx.Where("user_id = ?", userID).Take(&row).Error
	})
	if err != nil {
		return quota.Record{}, false, err
	}

	return row.toRecord(), incremented, nil
}

// Ping 檢查連線
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉連線池
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
