package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"spatial-index/internal/logger"
)

// OpenRedisFromEnv：按 REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB 打开客户端并 Ping
// 约束：Ping 失败时关闭客户端并返回错误，入口据此退化为仅本地缓存
func OpenRedisFromEnv(ctx context.Context) (*redis.Client, error) {
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := envNum("REDIS_DB", 0)
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	rc := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    envOr("REDIS_PASS", ""),
		DB:          db,
		DialTimeout: 2 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}
