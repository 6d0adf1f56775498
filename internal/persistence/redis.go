package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

const redisPingTimeout = 2 * time.Second

// Redis wraps the go-redis client and the namespace shared by every key the
// service writes.
type Redis struct {
	Client    *redis.Client
	keyPrefix string
}

// NewRedis builds the client. An unreachable server is logged, not fatal:
// reference data falls back to Postgres.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	r := &Redis{Client: client, keyPrefix: trimPrefix(cfg.KeyPrefix)}

	if err := r.Ping(context.Background()); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.String("key_prefix", r.keyPrefix))
	}
	return r
}

func trimPrefix(prefix string) string {
	return strings.TrimSuffix(strings.TrimSpace(prefix), ":")
}

// Key joins parts under the configured prefix, e.g. "helpdesk:reference".
func (r *Redis) Key(parts ...string) string {
	if r.keyPrefix == "" {
		return strings.Join(parts, ":")
	}
	return r.keyPrefix + ":" + strings.Join(parts, ":")
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping checks connectivity, bounded so a hung server cannot stall readiness.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	return r.Client.Ping(ctx).Err()
}
