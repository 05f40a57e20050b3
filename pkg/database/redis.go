package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"agent-chat-go/internal/config"
	"agent-chat-go/pkg/log"
)

// NewRedis 初始化 Redis 客户端连接，并通过 PING 校验可用性。
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
