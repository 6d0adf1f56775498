package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ReferenceCache stores the role/department snapshot in redis so every
// instance starts from the same tables.
type ReferenceCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewReferenceCache builds the cache. A zero ttl keeps the snapshot until the next reload.
func NewReferenceCache(client redis.Cmdable, key string, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{client: client, key: key, ttl: ttl}
}

// Load returns nil without error on a cache miss.
func (c *ReferenceCache) Load(ctx context.Context) (*domain.ReferenceSnapshot, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reference snapshot: %w", err)
	}

	var snapshot domain.ReferenceSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode reference snapshot: %w", err)
	}
	return &snapshot, nil
}

func (c *ReferenceCache) Store(ctx context.Context, snapshot *domain.ReferenceSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode reference snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write reference snapshot: %w", err)
	}
	return nil
}
