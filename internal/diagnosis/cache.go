package diagnosis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores classification results by key.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, res Result) error
}

// CacheKey derives a stable key from the classification input.
func CacheKey(input *Input) string {
	h := sha256.New()
	for _, part := range []string{
		strings.TrimSpace(input.Expected),
		strings.TrimSpace(input.Actual),
		input.Topic,
		string(input.AnswerType),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type cached struct {
	next  Classifier
	cache Cache
}

// Cached wraps c so identical inputs are classified once. Cache failures
// are treated as misses.
func Cached(c Classifier, cache Cache) Classifier {
	return &cached{next: c, cache: cache}
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) Classify(ctx context.Context, input *Input) (Result, error) {
	key := CacheKey(input)
	if res, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return res, nil
	}

	res, err := c.next.Classify(ctx, input)
	if err != nil {
		return res, err
	}
	_ = c.cache.Set(ctx, key, res)
	return res, nil
}

// MemoryCache is a bounded in-process cache. When full, an arbitrary
// entry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Result
	max     int
}

// NewMemoryCache creates a cache holding at most max entries (1024 if max <= 0).
func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 1024
	}
	return &MemoryCache{entries: make(map[string]Result), max: max}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.entries[key]
	return res, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, res Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.max {
		for k := range m.entries {
			delete(m.entries, k)
			break
		}
	}
	m.entries[key] = res
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCache stores classifications in Redis as JSON.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. A zero ttl keeps entries
// until evicted by Redis.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "adaptd:classify:", ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Result, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("redis get: %w", err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, false, fmt.Errorf("decode cached classification: %w", err)
	}
	return res, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, res Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode classification: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
