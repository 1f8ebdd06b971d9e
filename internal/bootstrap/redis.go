package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/asso-lecture/asso-backend/config"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/redis/go-redis/v9"
)

// OpenRedis returns nil when no address is configured.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewReporter keeps inconsistency reports in redis when a client is given,
// in process memory otherwise.
func NewReporter(client *redis.Client, capacity int) consistency.Reporter {
	if client == nil {
		return consistency.NewMemoryReporter(capacity)
	}
	return consistency.NewRedisReporter(client, capacity)
}
