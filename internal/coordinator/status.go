package coordinator

import (
	"context"
	"time"

	"ncaasoccer_etl/rpi/internal/cache"
	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/models"
)

const runKeyPrefix = "rpi:calc:"

// RunStore is the durable calculation status store. It is shared across
// instances, so admission must be a conditional write: TryCreate only
// succeeds when no record exists, and Replace only succeeds while the stored
// record still carries the expected calculation id.
type RunStore interface {
	// Get returns the run record for a date, nil when absent.
	Get(ctx context.Context, date string) (*models.CalculationRun, error)
	// TryCreate inserts the run only if no record exists for its date.
	TryCreate(ctx context.Context, run *models.CalculationRun, ttl time.Duration) (bool, error)
	// Replace swaps the record for run's date only while the stored record
	// still has calculation id expectID.
	Replace(ctx context.Context, expectID string, run *models.CalculationRun, ttl time.Duration) (bool, error)
	// Update overwrites the record. Only the run's owning coordinator calls
	// this, so a plain write is safe.
	Update(ctx context.Context, run *models.CalculationRun, ttl time.Duration) error
	// Clear removes the record for a date, returning it to the absent state.
	Clear(ctx context.Context, date string) error
}

// RedisRunStore implements RunStore on the shared Redis client.
type RedisRunStore struct {
	redis *cache.RedisCache
}

// NewRedisRunStore wraps a Redis client as the calculation status store.
func NewRedisRunStore(r *cache.RedisCache) *RedisRunStore {
	return &RedisRunStore{redis: r}
}

func runKey(date string) string {
	return runKeyPrefix + date
}

func (s *RedisRunStore) Get(ctx context.Context, date string) (*models.CalculationRun, error) {
	var run models.CalculationRun
	ok, err := s.redis.GetJSON(ctx, runKey(date), &run)
	if err != nil {
		return nil, errs.NewTransient("get run status", err)
	}
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (s *RedisRunStore) TryCreate(ctx context.Context, run *models.CalculationRun, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetJSONIfAbsent(ctx, runKey(run.CalculationDate), run, ttl)
	if err != nil {
		return false, errs.NewTransient("create run status", err)
	}
	return ok, nil
}

func (s *RedisRunStore) Replace(ctx context.Context, expectID string, run *models.CalculationRun, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SwapJSONByCalculationID(ctx, runKey(run.CalculationDate), expectID, run, ttl)
	if err != nil {
		return false, errs.NewTransient("replace run status", err)
	}
	return ok, nil
}

func (s *RedisRunStore) Update(ctx context.Context, run *models.CalculationRun, ttl time.Duration) error {
	if err := s.redis.SetJSON(ctx, runKey(run.CalculationDate), run, ttl); err != nil {
		return errs.NewTransient("update run status", err)
	}
	return nil
}

func (s *RedisRunStore) Clear(ctx context.Context, date string) error {
	if err := s.redis.Delete(ctx, runKey(date)); err != nil {
		return errs.NewTransient("clear run status", err)
	}
	return nil
}
