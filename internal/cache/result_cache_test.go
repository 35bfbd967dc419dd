package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"ncaasoccer_etl/rpi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDurable struct {
	snapshots map[string]*models.RankingSnapshot
	ttls      map[string]time.Duration
	getErr    error
	gets      int
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{
		snapshots: make(map[string]*models.RankingSnapshot),
		ttls:      make(map[string]time.Duration),
	}
}

func (f *fakeDurable) GetSnapshot(_ context.Context, date string) (*models.RankingSnapshot, bool, error) {
	f.gets++
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	snap, ok := f.snapshots[date]
	return snap, ok, nil
}

func (f *fakeDurable) PutSnapshot(_ context.Context, date string, snapshot *models.RankingSnapshot, ttl time.Duration) error {
	f.snapshots[date] = snapshot
	f.ttls[date] = ttl
	return nil
}

func (f *fakeDurable) DeleteSnapshot(_ context.Context, date string) error {
	delete(f.snapshots, date)
	return nil
}

func (f *fakeDurable) DeleteAllSnapshots(context.Context) error {
	f.snapshots = make(map[string]*models.RankingSnapshot)
	return nil
}

func snapshot(date string, teams int) *models.RankingSnapshot {
	return &models.RankingSnapshot{CalculationDate: date, TotalTeams: teams}
}

func TestMemoryCache_SetGet(t *testing.T) {
	m := NewMemoryCache()
	m.Set("2025-10-15", snapshot("2025-10-15", 3), time.Minute)

	got, ok := m.Get("2025-10-15")
	require.True(t, ok)
	assert.Equal(t, 3, got.TotalTeams)

	_, ok = m.Get("2025-10-16")
	assert.False(t, ok)
}

func TestMemoryCache_ExpiredEntryIsDropped(t *testing.T) {
	m := NewMemoryCache()
	current := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Set("2025-10-15", snapshot("2025-10-15", 3), 5*time.Minute)

	current = current.Add(4 * time.Minute)
	_, ok := m.Get("2025-10-15")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = m.Get("2025-10-15")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len(), "expired entry should be swept on read")
}

func TestMemoryCache_Clear(t *testing.T) {
	m := NewMemoryCache()
	m.Set("2025-10-14", snapshot("2025-10-14", 1), time.Minute)
	m.Set("2025-10-15", snapshot("2025-10-15", 2), time.Minute)
	require.Equal(t, 2, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestResultCache_MemoryHitSkipsDurable(t *testing.T) {
	durable := newFakeDurable()
	c := NewResultCache(durable, 5*time.Minute, time.Hour)

	require.NoError(t, c.Put(context.Background(), "2025-10-15", snapshot("2025-10-15", 3)))

	got, tier, err := c.Get(context.Background(), "2025-10-15")
	require.NoError(t, err)
	assert.Equal(t, TierMemory, tier)
	assert.Equal(t, 3, got.TotalTeams)
	assert.Equal(t, 0, durable.gets)
}

func TestResultCache_DurableHitRepopulatesMemory(t *testing.T) {
	durable := newFakeDurable()
	durable.snapshots["2025-10-15"] = snapshot("2025-10-15", 3)
	c := NewResultCache(durable, 5*time.Minute, time.Hour)

	got, tier, err := c.Get(context.Background(), "2025-10-15")
	require.NoError(t, err)
	assert.Equal(t, TierDurable, tier)
	assert.Equal(t, 3, got.TotalTeams)

	// Second read is served from the repopulated memory tier.
	_, tier, err = c.Get(context.Background(), "2025-10-15")
	require.NoError(t, err)
	assert.Equal(t, TierMemory, tier)
	assert.Equal(t, 1, durable.gets)
}

func TestResultCache_FullMiss(t *testing.T) {
	c := NewResultCache(newFakeDurable(), 5*time.Minute, time.Hour)

	got, tier, err := c.Get(context.Background(), "2025-10-15")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, tier)
}

func TestResultCache_DurableErrorSurfaces(t *testing.T) {
	durable := newFakeDurable()
	durable.getErr = errors.New("connection refused")
	c := NewResultCache(durable, 5*time.Minute, time.Hour)

	_, _, err := c.Get(context.Background(), "2025-10-15")
	assert.Error(t, err)
}

func TestResultCache_PutUsesDurableTTL(t *testing.T) {
	durable := newFakeDurable()
	c := NewResultCache(durable, 5*time.Minute, time.Hour)

	require.NoError(t, c.Put(context.Background(), "2025-10-15", snapshot("2025-10-15", 3)))
	assert.Equal(t, time.Hour, durable.ttls["2025-10-15"])
}

func TestResultCache_InvalidateDate(t *testing.T) {
	durable := newFakeDurable()
	c := NewResultCache(durable, 5*time.Minute, time.Hour)
	require.NoError(t, c.Put(context.Background(), "2025-10-15", snapshot("2025-10-15", 3)))

	require.NoError(t, c.InvalidateDate(context.Background(), "2025-10-15"))

	got, tier, err := c.Get(context.Background(), "2025-10-15")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, tier)
}

func TestResultCache_InvalidateWipesBothTiers(t *testing.T) {
	durable := newFakeDurable()
	c := NewResultCache(durable, 5*time.Minute, time.Hour)
	require.NoError(t, c.Put(context.Background(), "2025-10-14", snapshot("2025-10-14", 1)))
	require.NoError(t, c.Put(context.Background(), "2025-10-15", snapshot("2025-10-15", 2)))

	require.NoError(t, c.Invalidate(context.Background()))

	for _, date := range []string{"2025-10-14", "2025-10-15"} {
		got, _, err := c.Get(context.Background(), date)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}
