package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"stayd/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AvailabilityCache is a short-TTL snapshot cache in front of availability
// reads. Cache failures degrade to direct database reads; they never fail
// the request.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(cfg config.RedisConfig) (*AvailabilityCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &AvailabilityCache{client: client, ttl: cfg.CacheTTL}, nil
}

func (c *AvailabilityCache) Close() error {
	return c.client.Close()
}

func availabilityKey(roomTypeID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("availability:%s:%s:%s",
		roomTypeID, start.Format(time.DateOnly), end.Format(time.DateOnly))
}

func (c *AvailabilityCache) Get(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time, dest any) bool {
	data, err := c.client.Get(ctx, availabilityKey(roomTypeID, start, end)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("availability cache read failed", "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false
	}
	return true
}

func (c *AvailabilityCache) Set(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, availabilityKey(roomTypeID, start, end), data, c.ttl).Err(); err != nil {
		slog.Warn("availability cache write failed", "error", err)
	}
}

// Invalidate drops all cached ranges for a room type after a successful
// write. Best effort: a missed invalidation only extends staleness to the
// TTL.
func (c *AvailabilityCache) Invalidate(ctx context.Context, roomTypeID uuid.UUID) {
	pattern := fmt.Sprintf("availability:%s:*", roomTypeID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("availability cache scan failed", "error", err)
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			slog.Warn("availability cache invalidation failed", "error", err)
		}
	}
}
