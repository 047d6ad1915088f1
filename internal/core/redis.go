// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/usergate/internal/config"
)

// Redis backs the rate limiter in both binaries and the user cache in the
// user service.
type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	err = dialWithRetry(ctx, "redis", cfg.ConnectTimeout, logger, func(ctx context.Context) error {
		return pingWithin(ctx, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	})
	if err != nil {
		_ = client.Close() //nolint:errcheck
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	err := pingWithin(ctx, func(ctx context.Context) error {
		return r.Client.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}
