package session_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// ErrNotFound is returned by Get when no live entry exists for a key.
var ErrNotFound = errors.New("session not found")

// DefaultCapacity bounds the in-memory backend.
const DefaultCapacity = 10000

// Backend is a keyed store with per-key expiry.
type Backend interface {
	Get(ctx context.Context, key string) (*Context, error)
	Set(ctx context.Context, key string, c *Context, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     *Context
	expiresAt time.Time
}

// MemoryBackend holds sessions in process, evicting the least recently used
// entry once capacity is reached. Expired entries are dropped on access and
// by Sweep.
type MemoryBackend struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, memoryEntry]
	capacity int
	now      func() time.Time
	log      logger.Logger
}

// NewMemoryBackend creates a backend holding at most capacity sessions.
func NewMemoryBackend(capacity int, log logger.Logger) (*MemoryBackend, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	cache, err := lru.New[string, memoryEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &MemoryBackend{cache: cache, capacity: capacity, now: time.Now, log: log}, nil
}

func (b *MemoryBackend) Get(_ context.Context, key string) (*Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && b.now().After(e.expiresAt) {
		b.cache.Remove(key)
		return nil, ErrNotFound
	}
	return e.value.Clone(), nil
}

// Set stores a copy of c. A non-positive ttl never expires.
func (b *MemoryBackend) Set(_ context.Context, key string, c *Context, ttl time.Duration) error {
	e := memoryEntry{value: c.Clone()}
	if ttl > 0 {
		e.expiresAt = b.now().Add(ttl)
	}

	b.mu.Lock()
	evicted := b.cache.Add(key, e)
	b.mu.Unlock()

	if evicted {
		b.log.Debug("Session capacity reached, evicted least recently used session",
			logger.IntField("capacity", b.Capacity()))
	}
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	b.cache.Remove(key)
	b.mu.Unlock()
	return nil
}

// Len counts stored entries, including expired ones not yet swept.
func (b *MemoryBackend) Len() int {
	return b.cache.Len()
}

// Capacity is the maximum number of entries.
func (b *MemoryBackend) Capacity() int {
	return b.capacity
}

// Sweep removes expired entries and returns how many were removed.
func (b *MemoryBackend) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for _, key := range b.cache.Keys() {
		e, ok := b.cache.Peek(key)
		if ok && !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			b.cache.Remove(key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (b *MemoryBackend) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := b.Sweep(); n > 0 {
					b.log.Debug("Swept expired sessions", logger.IntField("removed", n))
				}
			}
		}
	}()
}

// RedisBackend stores sessions as JSON values with a server-side expiry.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Client exposes the underlying client for health checks.
func (b *RedisBackend) Client() redis.UniversalClient {
	return b.client
}

func (b *RedisBackend) Get(ctx context.Context, key string) (*Context, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", key, err)
	}
	return &c, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, c *Context, ttl time.Duration) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := b.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
