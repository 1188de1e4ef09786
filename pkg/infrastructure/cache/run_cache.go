package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/config"
)

const (
	runResultKeyPrefix = "mrp:result"
	scanBatchSize      = 100
)

// RunCache stores MRP results keyed by input fingerprint
type RunCache interface {
	mrp.ResultCache
	InvalidateAll(ctx context.Context) error
	Close() error
}

type redisRunCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRunCache struct{}

// NewRunCache returns a Redis cache when enabled, otherwise a no-op one
func NewRunCache(cfg config.CacheConfig) (RunCache, error) {
	if !cfg.Enabled {
		return &noopRunCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisRunCache{client: client, ttl: ttl}, nil
}

func NewNoopRunCache() RunCache {
	return &noopRunCache{}
}

func (c *redisRunCache) GetResult(ctx context.Context, key string) (*dto.MRPResult, bool, error) {
	payload, err := c.client.Get(ctx, buildRunResultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result dto.MRPResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode mrp result cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisRunCache) SetResult(ctx context.Context, key string, result *dto.MRPResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode mrp result cache: %w", err)
	}
	if err := c.client.Set(ctx, buildRunResultKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every stored result, e.g. after a stock import
func (c *redisRunCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, runResultKeyPrefix, scanBatchSize)
}

func (c *redisRunCache) Close() error {
	return c.client.Close()
}

func (n *noopRunCache) GetResult(ctx context.Context, key string) (*dto.MRPResult, bool, error) {
	return nil, false, nil
}

func (n *noopRunCache) SetResult(ctx context.Context, key string, result *dto.MRPResult) error {
	return nil
}

func (n *noopRunCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopRunCache) Close() error {
	return nil
}

func buildRunResultKey(fingerprint string) string {
	return fmt.Sprintf("%s:%s", runResultKeyPrefix, fingerprint)
}
