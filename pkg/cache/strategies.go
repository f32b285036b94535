package cache

import (
	"context"
	"errors"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

// Cache keys for the category tree.
const (
	CategoryPrefix   = "categories:"
	CategoryAllKey   = "categories:all"
	CategoryRootsKey = "categories:roots"
)

const CategoryExpiration = time.Minute

// CacheAside returns the cached value for key or calls fetch and caches its
// result. Cache failures are logged and never fail the read.
func CacheAside[T any](ctx context.Context, c Cache, log logger.Logger, key string, expiration time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Warn("Cache read failed, falling back to source", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value, expiration); err != nil {
		log.Warn("Cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return value, nil
}
