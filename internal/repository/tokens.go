package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
)

// ErrNotFound is returned by token caches on a miss or an expired entry.
var ErrNotFound = errors.New("not found")

// MemoryTokens caches token lists per chain in process memory.
type MemoryTokens struct {
	mx      sync.RWMutex
	ttl     time.Duration
	entries map[int]tokensEntry
	now     func() time.Time
}

type tokensEntry struct {
	tokens  map[string]entity.Token
	expires time.Time
}

func NewMemoryTokens(ttl time.Duration) *MemoryTokens {
	return &MemoryTokens{
		ttl:     ttl,
		entries: make(map[int]tokensEntry),
		now:     time.Now,
	}
}

func (m *MemoryTokens) Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()

	entry, ok := m.entries[chainID]
	if !ok || !m.now().Before(entry.expires) {
		return nil, ErrNotFound
	}
	return entry.tokens, nil
}

func (m *MemoryTokens) StoreTokens(ctx context.Context, chainID int, tokens map[string]entity.Token) error {
	m.mx.Lock()
	defer m.mx.Unlock()

	m.entries[chainID] = tokensEntry{tokens: tokens, expires: m.now().Add(m.ttl)}
	return nil
}

// RedisTokens caches token lists per chain as JSON values with a TTL.
type RedisTokens struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisTokens(client *redis.Client, ttl time.Duration) *RedisTokens {
	return &RedisTokens{client: client, ttl: ttl, prefix: "swapdash:tokens:"}
}

func (r *RedisTokens) key(chainID int) string {
	return fmt.Sprintf("%s%d", r.prefix, chainID)
}

func (r *RedisTokens) Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error) {
	raw, err := r.client.Get(ctx, r.key(chainID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get tokens: %w", err)
	}

	tokens := make(map[string]entity.Token)
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("unmarshal tokens: %w", err)
	}
	return tokens, nil
}

func (r *RedisTokens) StoreTokens(ctx context.Context, chainID int, tokens map[string]entity.Token) error {
	payload, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := r.client.Set(ctx, r.key(chainID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set tokens: %w", err)
	}
	return nil
}
