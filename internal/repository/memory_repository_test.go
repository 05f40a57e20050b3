package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-chat-go/pkg/agent"
)

// Runs against a real redis; set REDIS_ADDR to enable.
func newTestRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestMemoryRepositoryTrimsAndClears(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	mem := NewMemoryRepository(rdb, 3, time.Minute)
	session := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = mem.Clear(ctx, session) })

	empty, err := mem.History(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, mem.Append(ctx, session,
		agent.Entry{Role: "user", Content: "1"},
		agent.Entry{Role: "assistant", Content: "2"},
	))
	require.NoError(t, mem.Append(ctx, session,
		agent.Entry{Role: "user", Content: "3"},
		agent.Entry{Role: "assistant", Content: "4"},
	))

	history, err := mem.History(ctx, session)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2", history[0].Content)
	assert.Equal(t, "4", history[2].Content)

	ttl, err := rdb.TTL(ctx, memoryKey(session)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, mem.Clear(ctx, session))
	history, err = mem.History(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, history)
}
