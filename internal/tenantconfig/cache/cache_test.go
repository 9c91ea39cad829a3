package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleConfig() *domain.TenantConfig {
	return &domain.TenantConfig{
		TenantID: "42",
		Modules:  []template.ModuleConfig{{ID: "deals", Label: "Deals", Enabled: true}},
		Settings: map[string]any{"currency": "BRL"},
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	c := NewRedis(client, time.Minute, nil, zap.NewNop())
	id := snowflake.ID(42)

	_, ok := c.Get(ctx, id)
	assert.False(t, ok)

	c.Set(ctx, id, sampleConfig())
	got, ok := c.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "42", got.TenantID)
	assert.Equal(t, "BRL", got.Settings["currency"])
	assert.True(t, srv.Exists("tenant_config:42"))

	srv.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, id)
	assert.False(t, ok, "entry expires after ttl")

	c.Set(ctx, id, sampleConfig())
	c.Invalidate(ctx, id)
	_, ok = c.Get(ctx, id)
	assert.False(t, ok)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8, time.Minute, nil)
	id := snowflake.ID(7)

	c.Set(ctx, id, sampleConfig())
	first, ok := c.Get(ctx, id)
	require.True(t, ok)
	first.Settings["currency"] = "USD"

	second, ok := c.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "BRL", second.Settings["currency"])

	c.Invalidate(ctx, id)
	_, ok = c.Get(ctx, id)
	assert.False(t, ok)
}

func TestNoopNeverHits(t *testing.T) {
	c := Noop{}
	c.Set(context.Background(), 1, sampleConfig())
	_, ok := c.Get(context.Background(), 1)
	assert.False(t, ok)
}

func TestNewPicksBackend(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	log := zap.NewNop()

	assert.IsType(t, Noop{}, New(Params{Config: config.Config{}, Log: log, Redis: client}))
	assert.IsType(t, &Redis{}, New(Params{Config: config.Config{TenantConfigCacheTTL: time.Minute}, Log: log, Redis: client}))

	// without redis, stale entries on other replicas outlive Invalidate
	assert.IsType(t, Noop{}, New(Params{Config: config.Config{TenantConfigCacheTTL: time.Minute}, Log: log}))
	assert.IsType(t, &Memory{}, New(Params{
		Config: config.Config{TenantConfigCacheTTL: time.Minute, TenantConfigLocalCache: true},
		Log:    log,
	}))
}
