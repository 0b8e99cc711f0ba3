// Package cache 提供記憶體與 Redis 兩種 TTL 鍵值儲存
package cache

import (
	"context"
	"time"
)

// Store 鍵值儲存介面。找不到鍵時回傳 common.ErrCacheMiss
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend 名稱，用於就緒檢查回報
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)
