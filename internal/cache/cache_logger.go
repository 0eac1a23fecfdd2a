package cache

import (
	"context"
	"log/slog"
	"time"
)

// SafeSet stores a value and only logs on failure
func SafeSet(ctx context.Context, helper *CacheHelper, key string, value interface{}, ttl time.Duration) {
	if err := helper.Set(ctx, key, value, ttl); err != nil {
		slog.WarnContext(ctx, "Failed to set cache key",
			"error", err,
			"key", key)
	}
}
