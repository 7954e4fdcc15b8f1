package preference

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV 偏好数据的键值存储
type KV interface {
	// Get 返回值与是否存在
	Get(ctx context.Context, key string) (string, bool, error)
	// Set ttl 为 0 表示不过期
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisKV 基于 Redis 的存储
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV 创建 Redis 存储
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// MemoryKV 进程内存储，Redis 未启用时使用
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryKV 创建内存存储
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
