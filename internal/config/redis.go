package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisDialTimeout = 3 * time.Second

// SetupRedis connects to the cache server described by cfg and verifies the
// connection with a PING. The caller owns the returned client.
func SetupRedis(ctx context.Context, cfg *CacheConfig, logger *slog.Logger) (*redis.Client, error) {
	if cfg == nil {
		return nil, errors.New("cache config is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("cache.addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("redis connected",
		slog.String("addr", addr),
		slog.Int("db", cfg.DB),
		slog.String("ttl", Duration(cfg.TTL, 10*time.Minute).String()),
	)
	return rdb, nil
}
