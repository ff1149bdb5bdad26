package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether values are actually stored
func (c *Cache) Enabled() bool {
	return c.client != nil && c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 규칙 조회
	TTLMedium = 10 * time.Minute // 분석 결과
	TTLLong   = 1 * time.Hour    // 캘린더 스냅샷
)

// AnalysisKey identifies a cached analysis by the fingerprint of its input
func AnalysisKey(fingerprint string) string {
	return fmt.Sprintf("analysis:%s", fingerprint)
}

// DailyKey identifies a cached daily view (input fingerprint + filter)
func DailyKey(fingerprint, status, sortBy, sortOrder string) string {
	return fmt.Sprintf("daily:%s:%s:%s:%s", fingerprint, status, sortBy, sortOrder)
}
