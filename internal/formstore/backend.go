package formstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Backend is the durable storage a Store serializes into. One entry per key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// MemoryBackend keeps entries in process memory. Used in development and tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// RedisBackend stores each form as a plain string value without expiry.
type RedisBackend struct {
	redis *redis.Client
}

// NewRedisBackend wraps a go-redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	if client == nil {
		panic("formstore: redis client required")
	}
	return &RedisBackend{redis: client}
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("formstore: redis get: %w", err)
	}
	return data, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, key string, data []byte) error {
	if err := r.redis.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("formstore: redis set: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("formstore: redis del: %w", err)
	}
	return nil
}
