package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hashicorp/golang-lru/v2/expirable"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/observability/metrics"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyTenantConfig = "tenant_config:%s"
	memorySize      = 512
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
	Redis   *redis.Client    `optional:"true"`
}

// New returns a Redis backed cache when a client is available. Without Redis
// it caches in process only when TenantConfigLocalCache is set, since an
// invalidation cannot reach other replicas. A zero TTL disables caching.
func New(p Params) domain.Cache {
	ttl := p.Config.TenantConfigCacheTTL
	log := p.Log.Named("tenantconfig.cache")
	switch {
	case ttl <= 0:
		return Noop{}
	case p.Redis != nil:
		return NewRedis(p.Redis, ttl, p.Metrics, log)
	case p.Config.TenantConfigLocalCache:
		log.Info("tenant config cached in process; run a single replica or enable redis")
		return NewMemory(memorySize, ttl, p.Metrics)
	default:
		return Noop{}
	}
}

type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, m *metrics.Metrics, log *zap.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, metrics: m, log: log}
}

func (c *Redis) Get(ctx context.Context, tenantID snowflake.ID) (*domain.TenantConfig, bool) {
	raw, err := c.client.Get(ctx, key(tenantID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("tenant config cache read failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		}
		c.metrics.RecordConfigCache(ctx, metrics.ResultMiss)
		return nil, false
	}
	var cfg domain.TenantConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.log.Warn("tenant config cache entry corrupt", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		c.metrics.RecordConfigCache(ctx, metrics.ResultMiss)
		return nil, false
	}
	c.metrics.RecordConfigCache(ctx, metrics.ResultHit)
	return &cfg, true
}

func (c *Redis) Set(ctx context.Context, tenantID snowflake.ID, cfg *domain.TenantConfig) {
	if cfg == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(tenantID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("tenant config cache write failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
}

func (c *Redis) Invalidate(ctx context.Context, tenantID snowflake.ID) {
	if err := c.client.Del(ctx, key(tenantID)).Err(); err != nil {
		c.log.Warn("tenant config cache invalidate failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
}

// Memory keeps configs in process. Entries are stored as JSON so callers never
// share mutable state with the cache.
type Memory struct {
	lru     *expirable.LRU[snowflake.ID, []byte]
	metrics *metrics.Metrics
}

func NewMemory(size int, ttl time.Duration, m *metrics.Metrics) *Memory {
	return &Memory{
		lru:     expirable.NewLRU[snowflake.ID, []byte](size, nil, ttl),
		metrics: m,
	}
}

func (c *Memory) Get(ctx context.Context, tenantID snowflake.ID) (*domain.TenantConfig, bool) {
	raw, ok := c.lru.Get(tenantID)
	if !ok {
		c.metrics.RecordConfigCache(ctx, metrics.ResultMiss)
		return nil, false
	}
	var cfg domain.TenantConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.lru.Remove(tenantID)
		c.metrics.RecordConfigCache(ctx, metrics.ResultMiss)
		return nil, false
	}
	c.metrics.RecordConfigCache(ctx, metrics.ResultHit)
	return &cfg, true
}

func (c *Memory) Set(_ context.Context, tenantID snowflake.ID, cfg *domain.TenantConfig) {
	if cfg == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	c.lru.Add(tenantID, raw)
}

func (c *Memory) Invalidate(_ context.Context, tenantID snowflake.ID) {
	c.lru.Remove(tenantID)
}

type Noop struct{}

func (Noop) Get(context.Context, snowflake.ID) (*domain.TenantConfig, bool) { return nil, false }
func (Noop) Set(context.Context, snowflake.ID, *domain.TenantConfig)         {}
func (Noop) Invalidate(context.Context, snowflake.ID)                        {}

func key(tenantID snowflake.ID) string {
	return fmt.Sprintf(keyTenantConfig, tenantID.String())
}
