// Package redis holds Redis-backed adapters for multi-node deployments.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard/config"
)

// NewClient connects a go-redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr()).Msg("Redis connected")
	return client, nil
}

// RateLimiter implements the request limiter on Redis window counters so
// multiple nodes share one budget per account.
type RateLimiter struct {
	client *goredis.Client
	prefix string
	limit  int64
	window time.Duration
	log    zerolog.Logger
}

// NewRateLimiter creates a limiter allowing limit attempts per window.
func NewRateLimiter(client *goredis.Client, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: "payguard:ratelimit:",
		limit:  int64(limit),
		window: window,
		log:    log.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow increments the caller's window counter and reports whether the
// attempt is within the limit. Counters use INCR + EXPIRE on keys scoped by
// discrete window id.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowID := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, windowID)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis rate limit incr: %w", err)
	}

	// Set expiry only on first increment (new window). A failed EXPIRE
	// leaves the counter key behind forever, so it is worth a log line.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window+time.Second).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", redisKey).Msg("Rate limit window expiry not set")
		}
	}

	return count <= l.limit, nil
}
