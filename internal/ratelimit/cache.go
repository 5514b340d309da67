package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/clock"
)

// Cache stores integer counters with a TTL.
type Cache interface {
	// Get returns the counter and whether it exists and has not expired.
	Get(ctx context.Context, key string) (int, bool, error)
	// Set stores value and (re)starts its TTL.
	Set(ctx context.Context, key string, value int, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// IN-MEMORY CACHE
// =============================================================================

type entry struct {
	value   int
	expires time.Time
}

// MemoryCache is a process-local Cache. Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]entry
}

// NewMemoryCache returns a MemoryCache driven by c (clock.Real{} when nil).
func NewMemoryCache(c clock.Clock) *MemoryCache {
	if c == nil {
		c = clock.Real{}
	}
	return &MemoryCache{clock: c, entries: make(map[string]entry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return 0, false, nil
	}
	if !m.clock.Now().Before(e.expires) {
		delete(m.entries, key)
		return 0, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value int, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expires: m.clock.Now().Add(ttl)}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// =============================================================================
// REDIS CACHE
// =============================================================================

// RedisCache stores counters in Redis so limits are shared across replicas.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (int, bool, error) {
	n, err := r.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return n, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
