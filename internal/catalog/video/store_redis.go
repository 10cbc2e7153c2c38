// Copyright (c) 2026 XStream Media. All rights reserved.

package video

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xstreamhq/xstream/internal/platform/constants"
)

// viewGuardTTL is how long a single viewer's view of one video stays counted.
// Repeat plays inside this window do not inflate the counter.
const viewGuardTTL = 30 * time.Minute

// RedisViewGuard implements [ViewGuard] on Redis using SET NX with a TTL.
type RedisViewGuard struct {
	client *redis.Client
}

// NewViewGuard creates a Redis-backed view-count debouncer.
func NewViewGuard(client *redis.Client) *RedisViewGuard {
	return &RedisViewGuard{client: client}
}

// Acquire reports whether this viewer may count a view for the video.
//
// SET NX is atomic: exactly one of any concurrent duplicate requests wins.
func (guard *RedisViewGuard) Acquire(ctx context.Context, viewerKey, videoID string) (bool, error) {
	key := constants.RedisPrefixViewGuard + videoID + ":" + viewerKey
	acquired, err := guard.client.SetNX(ctx, key, 1, viewGuardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis_view_guard_failed: %w", err)
	}
	return acquired, nil
}
