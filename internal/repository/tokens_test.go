package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
)

var usdc = entity.Token{
	Address:  "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
	Symbol:   "USDC",
	Decimals: 6,
}

func TestMemoryTokens(t *testing.T) {
	now := time.Now()
	cache := NewMemoryTokens(time.Minute)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := cache.Tokens(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cache.StoreTokens(ctx, 1, map[string]entity.Token{usdc.Address: usdc}))

	tokens, err := cache.Tokens(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, usdc, tokens[usdc.Address])

	_, err = cache.Tokens(ctx, 56)
	assert.ErrorIs(t, err, ErrNotFound)

	now = now.Add(time.Minute)
	_, err = cache.Tokens(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisTokens(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	cache := NewRedisTokens(client, time.Minute)
	cache.prefix = fmt.Sprintf("test:%d:", time.Now().UnixNano())
	ctx := context.Background()

	_, err := cache.Tokens(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cache.StoreTokens(ctx, 1, map[string]entity.Token{usdc.Address: usdc}))

	tokens, err := cache.Tokens(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, usdc, tokens[usdc.Address])

	ttl, err := client.TTL(ctx, cache.key(1)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
