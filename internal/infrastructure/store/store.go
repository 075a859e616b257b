package store

import (
	"context"
	"fmt"

	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/infrastructure/config"
	"recipe-modifier/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// New 依設定的驅動建立額度儲存
func New(ctx context.Context, cfg *config.Config) (quota.Store, error) {
	sc := cfg.Store

	switch sc.Driver {
	case config.StoreMemory:
		common.LogInfo("使用記憶體額度儲存",
			zap.Duration("idle_ttl", sc.Memory.IdleTTL),
		)
		return quota.NewMemoryStore(quota.MemoryOptions{
			IdleTTL:         sc.Memory.IdleTTL,
			CleanupInterval: sc.Memory.CleanupInterval,
		}), nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})

		// 測試連接
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		common.LogInfo("使用 Redis 額度儲存",
			zap.String("addr", sc.Redis.Addr),
			zap.String("key_prefix", sc.Redis.KeyPrefix),
		)
		return NewRedisStore(client, RedisOptions{
			KeyPrefix: sc.Redis.KeyPrefix,
			TTL:       sc.Redis.TTL,
		}), nil

	case config.StoreSQL:
		logLevel := logger.Silent
		if cfg.App.Debug {
			logLevel = logger.Warn
		}
		db, err := OpenSQL(sc.SQL, logLevel)
		if err != nil {
			return nil, err
		}

		common.LogInfo("使用資料庫額度儲存",
			zap.String("dialect", sc.SQL.Dialect),
			zap.String("dsn", common.RedactDSN(sc.SQL.DSN)),
		)
		s, err := NewSQLStore(db, sc.SQL.AutoMigrate)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreRemote:
		common.LogInfo("使用遠端額度儲存",
			zap.String("base_url", sc.Remote.BaseURL),
		)
		return NewRemoteStore(RemoteOptions{
			BaseURL: sc.Remote.BaseURL,
			APIKey:  sc.Remote.APIKey,
			Timeout: sc.Remote.Timeout,
		}), nil

	default:
		return nil, fmt.Errorf("unknown quota store driver %q", sc.Driver)
	}
}
