package redis

import (
	"context"
	"time"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit against key. RetryAfter is the time left in the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	count, ttl, err := r.client.IncrWindow(ctx, key, window)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Allowed: count <= int64(limit), RetryAfter: ttl}
	if left := int64(limit) - count; left > 0 {
		d.Remaining = int(left)
	}
	return d, nil
}
