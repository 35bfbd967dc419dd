package cache

import (
	"context"
	"time"

	"ncaasoccer_etl/rpi/internal/metrics"
	"ncaasoccer_etl/rpi/internal/models"

	"github.com/rs/zerolog/log"
)

// Cache tier names, used in responses and metric labels.
const (
	TierMemory  = "memory"
	TierDurable = "durable"
)

const snapshotKeyPrefix = "rpi:cache:"

// DurableTier is the cross-instance snapshot store behind the in-process
// tier. RedisDurable is the production implementation.
type DurableTier interface {
	GetSnapshot(ctx context.Context, date string) (*models.RankingSnapshot, bool, error)
	PutSnapshot(ctx context.Context, date string, snapshot *models.RankingSnapshot, ttl time.Duration) error
	DeleteSnapshot(ctx context.Context, date string) error
	DeleteAllSnapshots(ctx context.Context) error
}

// RedisDurable implements DurableTier on the shared Redis client.
type RedisDurable struct {
	redis *RedisCache
}

// NewRedisDurable wraps a Redis client as the durable cache tier.
func NewRedisDurable(r *RedisCache) *RedisDurable {
	return &RedisDurable{redis: r}
}

func snapshotKey(date string) string {
	return snapshotKeyPrefix + date
}

func (d *RedisDurable) GetSnapshot(ctx context.Context, date string) (*models.RankingSnapshot, bool, error) {
	var snap models.RankingSnapshot
	ok, err := d.redis.GetJSON(ctx, snapshotKey(date), &snap)
	if err != nil || !ok {
		return nil, false, err
	}
	return &snap, true, nil
}

func (d *RedisDurable) PutSnapshot(ctx context.Context, date string, snapshot *models.RankingSnapshot, ttl time.Duration) error {
	return d.redis.SetJSON(ctx, snapshotKey(date), snapshot, ttl)
}

func (d *RedisDurable) DeleteSnapshot(ctx context.Context, date string) error {
	return d.redis.Delete(ctx, snapshotKey(date))
}

func (d *RedisDurable) DeleteAllSnapshots(ctx context.Context) error {
	return d.redis.DeleteByPrefix(ctx, snapshotKeyPrefix)
}

// ResultCache is the two-tier cache of finished calculation output: a small
// volatile in-process map in front of a durable shared store. A durable hit
// repopulates the in-process tier.
type ResultCache struct {
	memory     *MemoryCache
	durable    DurableTier
	memoryTTL  time.Duration
	durableTTL time.Duration
}

// NewResultCache builds a two-tier cache with per-tier TTLs.
func NewResultCache(durable DurableTier, memoryTTL, durableTTL time.Duration) *ResultCache {
	return &ResultCache{
		memory:     NewMemoryCache(),
		durable:    durable,
		memoryTTL:  memoryTTL,
		durableTTL: durableTTL,
	}
}

// Get looks a calculation date up in the memory tier, then the durable tier.
// Returns the snapshot and the tier that served it, or (nil, "") on a full
// miss. Durable-tier errors are returned so readers can fall through to the
// authoritative store.
func (c *ResultCache) Get(ctx context.Context, date string) (*models.RankingSnapshot, string, error) {
	if snap, ok := c.memory.Get(date); ok {
		metrics.RecordCacheHit(TierMemory)
		return snap, TierMemory, nil
	}
	metrics.RecordCacheMiss(TierMemory)

	start := time.Now()
	snap, ok, err := c.durable.GetSnapshot(ctx, date)
	metrics.RecordCacheOperation("get", time.Since(start).Seconds())
	if err != nil {
		return nil, "", err
	}
	if !ok {
		metrics.RecordCacheMiss(TierDurable)
		return nil, "", nil
	}

	metrics.RecordCacheHit(TierDurable)
	c.memory.Set(date, snap, c.memoryTTL)
	return snap, TierDurable, nil
}

// Put stores a snapshot in both tiers.
func (c *ResultCache) Put(ctx context.Context, date string, snapshot *models.RankingSnapshot) error {
	c.memory.Set(date, snapshot, c.memoryTTL)

	start := time.Now()
	err := c.durable.PutSnapshot(ctx, date, snapshot, c.durableTTL)
	metrics.RecordCacheOperation("put", time.Since(start).Seconds())
	return err
}

// InvalidateDate removes one calculation date from both tiers. Called when a
// new calculation for that date completes.
func (c *ResultCache) InvalidateDate(ctx context.Context, date string) error {
	c.memory.Delete(date)
	return c.durable.DeleteSnapshot(ctx, date)
}

// Invalidate wipes both tiers entirely. This is the administrative reset; it
// does not touch calculation run history.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	c.memory.Clear()
	if err := c.durable.DeleteAllSnapshots(ctx); err != nil {
		return err
	}
	log.Info().Msg("Result cache cleared")
	return nil
}
