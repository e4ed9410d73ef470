package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecocycle/ewaste-api/pkg/config"
)

// NewRedis returns a configured Redis client used for catalog caching.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Pinger adapts a Redis client to the readiness check.
type Pinger struct {
	Client *redis.Client
}

// PingContext reports whether Redis answers PING.
func (p Pinger) PingContext(ctx context.Context) error {
	if p.Client == nil {
		return fmt.Errorf("redis client not configured")
	}
	return p.Client.Ping(ctx).Err()
}
