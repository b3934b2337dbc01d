package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Bside/db"
	"Bside/model"

	"github.com/go-redis/redis/v8"
)

// 公开发行目录的Redis缓存
// 目录读多写少：发布/下架/提交新曲目时失效，下次读取回源重建。

const (
	catalogKey = "catalog:published"
	catalogTTL = 10 * time.Minute
)

// GetCatalog 读取缓存的发行目录，未命中返回 (nil, false)
func GetCatalog(ctx context.Context) ([]*model.Release, bool, error) {
	if db.RedisClient == nil {
		return nil, false, fmt.Errorf("Redis client not initialized")
	}

	data, err := db.RedisClient.Get(ctx, catalogKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get catalog cache: %w", err)
	}

	var releases []*model.Release
	if err := json.Unmarshal([]byte(data), &releases); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal catalog cache: %w", err)
	}
	return releases, true, nil
}

// SetCatalog 写入发行目录缓存
func SetCatalog(ctx context.Context, releases []*model.Release) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(releases)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := db.RedisClient.Set(ctx, catalogKey, data, catalogTTL).Err(); err != nil {
		return fmt.Errorf("failed to set catalog cache: %w", err)
	}
	return nil
}

// InvalidateCatalog 使发行目录缓存失效
func InvalidateCatalog(ctx context.Context) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := db.RedisClient.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}
