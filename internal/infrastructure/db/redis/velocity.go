package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultVelocityWindow = time.Minute

// VelocityTracker counts requests per user inside a sliding window, backed by
// a Redis counter with a TTL. Key format: velocity:<user_id>
type VelocityTracker struct {
	client *redis.Client
	window time.Duration
}

func NewVelocityTracker(client *redis.Client, window time.Duration) *VelocityTracker {
	if window <= 0 {
		window = defaultVelocityWindow
	}
	return &VelocityTracker{client: client, window: window}
}

// Hit increments and returns the user's request count for the current window.
func (v *VelocityTracker) Hit(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := "velocity:" + userID.String()

	n, err := v.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("velocity incr: %w", err)
	}
	// First hit in a window owns the expiry.
	if n == 1 {
		if err := v.client.Expire(ctx, key, v.window).Err(); err != nil {
			return n, fmt.Errorf("velocity expire: %w", err)
		}
	}
	return n, nil
}
