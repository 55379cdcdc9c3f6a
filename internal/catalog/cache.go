package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/playperu/spotguess/internal/spotguess"
)

const (
	mapsKey  = "spotguess:catalog:maps"
	spotsKey = "spotguess:catalog:spots"
)

// Cache is a read-through Redis cache in front of another Source. Redis
// failures are logged and the request falls through to the source, so a
// down cache never makes the catalog unavailable.
type Cache struct {
	rdb    *redis.Client
	src    Source
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, src Source, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, src: src, ttl: ttl, logger: logger}
}

func (c *Cache) ListMaps(ctx context.Context) ([]spotguess.MapDefinition, error) {
	return readThrough(ctx, c, mapsKey, c.src.ListMaps)
}

func (c *Cache) ListSpots(ctx context.Context) ([]spotguess.Spot, error) {
	return readThrough(ctx, c, spotsKey, c.src.ListSpots)
}

// Invalidate drops the cached lists, e.g. after an import.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, mapsKey, spotsKey).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func readThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []T
		uerr := sonic.Unmarshal(data, &out)
		if uerr == nil {
			return out, nil
		}
		c.logger.Warn("catalog cache entry unreadable", "key", key, "error", uerr)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("catalog cache unavailable", "key", key, "error", err)
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}

	data, err = sonic.Marshal(out)
	if err != nil {
		c.logger.Warn("encoding catalog cache entry", "key", key, "error", err)
		return out, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("writing catalog cache entry", "key", key, "error", err)
	}
	return out, nil
}
