package cache

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/config"
	testhelpers "github.com/vsinha/mrpbom/pkg/infrastructure/testing"
)

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@example:7000/3"})
	require.NoError(t, err)
	assert.Equal(t, "example:7000", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestNewRunCache_DisabledIsNoop(t *testing.T) {
	c, err := NewRunCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	_, ok, err := c.GetResult(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.SetResult(ctx, "k", nil))
	assert.NoError(t, c.InvalidateAll(ctx))
	assert.NoError(t, c.Close())
}

func TestRedisRunCache_RoundTrip(t *testing.T) {
	url := os.Getenv("MRP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MRP_TEST_REDIS_URL not set")
	}
	c, err := NewRunCache(config.CacheConfig{Enabled: true, RedisURL: url})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.InvalidateAll(ctx))

	service := mrp.NewMRPService(
		mrp.WithLogger(zerolog.Nop()),
		mrp.WithConfig(mrp.EngineConfig{Clock: testhelpers.FixedClock("2025-01-15")}),
	)
	catalog, orderRepo := testhelpers.BuildSimpleTestData()
	orders, _ := orderRepo.GetOrders()

	first, hit, err := service.RunCached(ctx, c, catalog, orders)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := service.RunCached(ctx, c, catalog, orders)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.RunID, second.RunID)
	require.Len(t, second.Records, len(first.Records))
	for i, rec := range first.Records {
		assert.Equal(t, rec.Code, second.Records[i].Code)
		assert.Equal(t, rec.Kind, second.Records[i].Kind)
		assert.True(t, rec.Shortage.Equal(second.Records[i].Shortage))
		assert.True(t, rec.PurchaseDate.Equal(second.Records[i].PurchaseDate))
	}

	require.NoError(t, c.InvalidateAll(ctx))
	_, hit, err = service.RunCached(ctx, c, catalog, orders)
	require.NoError(t, err)
	assert.False(t, hit)
}
