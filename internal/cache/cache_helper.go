package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides common caching operations for repositories
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

// Default cache configurations
var (
	// Authored assessments change rarely and are read on every start and submit
	AssessmentCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "assessment:",
	}

	// Question pools per assessment
	QuestionCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "question:",
	}

	// Identity provider lookups
	UserCacheConfig = CacheConfig{
		TTL:    15 * time.Minute,
		Prefix: "user:",
	}

	// Fixed-window request counters
	RateLimitCacheConfig = CacheConfig{
		TTL:    time.Minute,
		Prefix: "ratelimit:",
	}
)

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Get retrieves and unmarshals data from cache
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	data, err := c.client.Get(ctx, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheNotFound
		}
		// Sanitize error to prevent log injection
		return fmt.Errorf("cache get error for key type: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Graceful degradation when cache not available
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	cacheKey := c.GetCacheKey(key)
	return c.client.Set(ctx, cacheKey, data, ttl).Err()
}

// CacheOrExecute implements cache-aside pattern with proper error handling
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	// Try cache first
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil // Found in cache
	}

	if err != ErrCacheNotFound && err != ErrCacheNotAvailable {
		// Cache error occurred but continue with fetch
		slog.Info("Cache get error, proceeding to fetch", "error", err, "key", key)
	}

	// Execute fetch function
	value, err := fetchFunc()
	if err != nil {
		return fmt.Errorf("fetch function error: %w", err)
	}

	// Store in cache asynchronously to not block the response
	go func(parentCtx context.Context) {
		ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), 5*time.Second)
		defer cancel()
		if err := c.Set(ctxWithTimeout, key, value, ttl); err != nil {
			slog.Error("Cache set error", "error", err, "key", key)
		}
	}(ctx)

	// Set the result to destination directly without re-marshaling
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}

	return json.Unmarshal(data, dest)
}

// IncrWindow increments a fixed-window counter and returns the count inside the window.
// The expiry is set when the window opens.
func (c *CacheHelper) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c.client == nil {
		return 0, ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	count, err := c.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr error: %w", err)
	}

	if count == 1 {
		if err := c.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			return count, fmt.Errorf("cache expire error: %w", err)
		}
	}

	return count, nil
}

// TTL returns the remaining lifetime of a key
func (c *CacheHelper) TTL(ctx context.Context, key string) (time.Duration, error) {
	if c.client == nil {
		return 0, ErrCacheNotAvailable
	}
	return c.client.TTL(ctx, c.GetCacheKey(key)).Result()
}

// Cache errors
var (
	ErrCacheNotAvailable = fmt.Errorf("cache not available")
	ErrCacheNotFound     = fmt.Errorf("cache not found")
)

// CacheManager manages multiple cache helpers
type CacheManager struct {
	client *redis.Client

	Assessment *CacheHelper
	Question   *CacheHelper
	User       *CacheHelper
	RateLimit  *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers; a nil client disables caching
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client:     client,
		Assessment: NewCacheHelper(client, AssessmentCacheConfig.Prefix),
		Question:   NewCacheHelper(client, QuestionCacheConfig.Prefix),
		User:       NewCacheHelper(client, UserCacheConfig.Prefix),
		RateLimit:  NewCacheHelper(client, RateLimitCacheConfig.Prefix),
	}
}

// Enabled reports whether a Redis client backs the manager
func (cm *CacheManager) Enabled() bool {
	return cm.client != nil
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := cm.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}
