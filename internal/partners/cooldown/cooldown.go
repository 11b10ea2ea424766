// Package cooldown implements the per-visitor click window in Redis.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "affiliate:click:"

// Redis claims click windows with SET NX EX. The first claim inside a window
// wins; later ones within the TTL are reported as duplicates.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// NewRedisFromURL parses a redis:// or rediss:// URL.
func NewRedisFromURL(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Claim reports true when key had no active window and one was opened.
func (r *Redis) Claim(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, keyPrefix+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("claim click window: %w", err)
	}
	return ok, nil
}

// Release drops the window for key so the next click opens a new one.
func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release click window: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
