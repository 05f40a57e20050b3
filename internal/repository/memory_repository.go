package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"agent-chat-go/pkg/agent"
)

// redisMemoryRepository keeps the agent's per-session history in a redis
// list, newest at the tail, trimmed to limit entries and expiring after ttl.
type redisMemoryRepository struct {
	redisClient *redis.Client
	limit       int
	ttl         time.Duration
}

// NewMemoryRepository returns an agent.Memory backed by redis.
func NewMemoryRepository(redisClient *redis.Client, limit int, ttl time.Duration) agent.Memory {
	return &redisMemoryRepository{redisClient: redisClient, limit: limit, ttl: ttl}
}

func memoryKey(sessionID string) string {
	return fmt.Sprintf("agent:session:%s", sessionID)
}

// History 从 Redis 获取会话历史记录，按写入顺序返回。
func (r *redisMemoryRepository) History(ctx context.Context, sessionID string) ([]agent.Entry, error) {
	raw, err := r.redisClient.LRange(ctx, memoryKey(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return []agent.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session history: %w", err)
	}
	entries := make([]agent.Entry, 0, len(raw))
	for _, item := range raw {
		var e agent.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *redisMemoryRepository) Append(ctx context.Context, sessionID string, entries ...agent.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal session entry: %w", err)
		}
		values = append(values, b)
	}

	key := memoryKey(sessionID)
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if r.limit > 0 {
			pipe.LTrim(ctx, key, int64(-r.limit), -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append session history: %w", err)
	}
	return nil
}

func (r *redisMemoryRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, memoryKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session history: %w", err)
	}
	return nil
}
