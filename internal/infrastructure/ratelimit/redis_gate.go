package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds the connection settings for the rate limit store
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisGate is a fixed-window rate limiter backed by Redis counters.
// Each window gets its own key so counters expire on their own and a
// restart never inherits stale state.
type RedisGate struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	logger    *zap.Logger
}

// NewRedisGate creates a gate with its own Redis connection
func NewRedisGate(cfg *RedisConfig, keyPrefix string, limit int, window time.Duration, logger *zap.Logger) (*RedisGate, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisGateWithClient(client, keyPrefix, limit, window, logger), nil
}

// NewRedisGateWithClient creates a gate using an existing Redis client
func NewRedisGateWithClient(client *redis.Client, keyPrefix string, limit int, window time.Duration, logger *zap.Logger) *RedisGate {
	return &RedisGate{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		logger:    logger,
	}
}

// windowKey derives the counter key for the current fixed window
func (g *RedisGate) windowKey(key string, now time.Time) string {
	bucket := now.Unix() / int64(g.window.Seconds())
	return g.keyPrefix + key + ":" + strconv.FormatInt(bucket, 10)
}

// Allow consumes one unit of the caller's budget and reports whether
// the request is within the limit
func (g *RedisGate) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := g.windowKey(key, time.Now())

	count, err := g.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr failed: %w", err)
	}
	if count == 1 {
		// Keep the key one extra window so a clock skew never loses it early
		if err := g.client.Expire(ctx, redisKey, g.window*2).Err(); err != nil {
			g.logger.Warn("Failed to set rate limit key expiry",
				zap.String("key", redisKey),
				zap.Error(err))
		}
	}

	allowed := count <= int64(g.limit)
	if !allowed {
		g.logger.Debug("Rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", g.limit))
	}
	return allowed, nil
}

// Check reports whether the caller still has budget without consuming any
func (g *RedisGate) Check(ctx context.Context, key string) (bool, error) {
	redisKey := g.windowKey(key, time.Now())

	val, err := g.client.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("rate limit get failed: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("rate limit counter is not numeric: %w", err)
	}
	return count < int64(g.limit), nil
}

// Close releases the underlying Redis connection
func (g *RedisGate) Close() error {
	return g.client.Close()
}

// Ensure RedisGate implements the gate port
var _ appboard.RateLimitGate = (*RedisGate)(nil)
