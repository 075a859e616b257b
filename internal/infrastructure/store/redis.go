package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"recipe-modifier/internal/core/quota"

	"github.com/go-redis/redis/v8"
)

// incrementScript 跨日歸零與條件加一在同一個 Lua 腳本內完成
//
// KEYS[1] 額度紀錄 key；ARGV: day, limit, ttl 秒數（0 表示不過期）。
// 返回 {count, limit, incremented}。額度用完時不寫入。
var incrementScript = redis.NewScript(`
local key = KEYS[1]
local day = ARGV[1]
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local count = 0
if redis.call('HGET', key, 'day') == day then
	count = tonumber(redis.call('HGET', key, 'count') or '0')
end

if count >= limit then
	return {count, limit, 0}
end

count = count + 1
redis.call('HSET', key, 'day', day, 'count', count, 'limit', limit)
if ttl > 0 then
	redis.call('EXPIRE', key, ttl)
end
return {count, limit, 1}
`)

// RedisStore 以 Redis hash 保存額度紀錄
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisOptions Redis 儲存選項
type RedisOptions struct {
	KeyPrefix string
	TTL       time.Duration // 紀錄閒置過期時間，0 表示不過期
}

// NewRedisStore 創建 Redis 額度儲存
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "quota:usage:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		ttl:       opts.TTL,
	}
}

func (s *RedisStore) key(userID string) string {
	return s.keyPrefix + userID
}

// Load 讀取紀錄
func (s *RedisStore) Load(ctx context.Context, userID string) (quota.Record, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return quota.Record{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return quota.Record{}, false, nil
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return quota.Record{}, false, fmt.Errorf("corrupt count for %s: %w", userID, err)
	}
	limit, err := strconv.Atoi(fields["limit"])
	if err != nil {
		return quota.Record{}, false, fmt.Errorf("corrupt limit for %s: %w", userID, err)
	}

	return quota.Record{
		UserID: userID,
		Day:    quota.Day(fields["day"]),
		Count:  count,
		Limit:  limit,
	}, true, nil
}

// IncrementIfBelow 透過 Lua 腳本原子地加一
func (s *RedisStore) IncrementIfBelow(ctx context.Context, userID string, day quota.Day, limit int) (quota.Record, bool, error) {
	ttl := int64(s.ttl / time.Second)
	res, err := incrementScript.Run(ctx, s.client, []string{s.key(userID)}, string(day), limit, ttl).Int64Slice()
	if err != nil {
		return quota.Record{}, false, fmt.Errorf("redis increment script: %w", err)
	}
	if len(res) != 3 {
		return quota.Record{}, false, errors.New("unexpected redis script result")
	}

	rec := quota.Record{
		UserID: userID,
		Day:    day,
		Count:  int(res[0]),
		Limit:  int(res[1]),
	}
	return rec, res[2] == 1, nil
}

// Ping 檢查連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
