// Package coordinator admits and drives calculation runs. It guarantees at
// most one in-flight calculation per calculation date across all service
// instances, tracks run progress for polling callers, and publishes finished
// output all-or-nothing.
package coordinator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"ncaasoccer_etl/rpi/internal/engine"
	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/metrics"
	"ncaasoccer_etl/rpi/internal/models"

	"github.com/rs/zerolog/log"
)

// MatchSource enumerates completed matches for a calculation window.
type MatchSource interface {
	CompletedInRange(ctx context.Context, start, end time.Time) ([]*models.Match, error)
}

// TeamDirectory resolves team metadata for validation and enrichment.
type TeamDirectory interface {
	All(ctx context.Context) (map[string]*models.Team, error)
}

// ResultSink durably stores a finished snapshot. Publish must be atomic:
// either the whole snapshot lands or none of it does.
type ResultSink interface {
	Publish(ctx context.Context, calculationID string, snapshot *models.RankingSnapshot) error
}

// SnapshotCache is the result cache updated after a successful publish.
type SnapshotCache interface {
	Put(ctx context.Context, date string, snapshot *models.RankingSnapshot) error
	InvalidateDate(ctx context.Context, date string) error
}

// Config holds coordinator tuning.
type Config struct {
	// MaxRunAge is the wall-clock staleness bound: an in_progress run older
	// than this is treated as failed, letting a fresh run be admitted.
	MaxRunAge time.Duration
	// Retention bounds how long terminal run records stay in the status
	// store. Old runs are history, not authority.
	Retention time.Duration
	// RetryAttempts and RetryBase shape the bounded exponential backoff
	// applied to transient store errors.
	RetryAttempts int
	RetryBase     time.Duration
	// SeasonStartMonth/Day anchor the start of the match window for a
	// calculation date.
	SeasonStartMonth time.Month
	SeasonStartDay   int
}

// DefaultConfig mirrors the documented defaults: 2h staleness bound, 24h
// status retention, four retries starting at 200ms, seasons starting
// August 1st.
func DefaultConfig() Config {
	return Config{
		MaxRunAge:        2 * time.Hour,
		Retention:        24 * time.Hour,
		RetryAttempts:    4,
		RetryBase:        200 * time.Millisecond,
		SeasonStartMonth: time.August,
		SeasonStartDay:   1,
	}
}

// Coordinator is the per-date calculation state machine.
type Coordinator struct {
	runs    RunStore
	matches MatchSource
	teams   TeamDirectory
	sink    ResultSink
	cache   SnapshotCache
	cfg     Config
	now     func() time.Time
}

// New builds a coordinator. cache may be nil when no result cache is wired
// (the manual trigger CLI runs without one).
func New(runs RunStore, matches MatchSource, teams TeamDirectory, sink ResultSink, cache SnapshotCache, cfg Config) *Coordinator {
	return &Coordinator{
		runs:    runs,
		matches: matches,
		teams:   teams,
		sink:    sink,
		cache:   cache,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Request admits a calculation for the given date. If a live run already
// exists its handle is returned and no new work starts; otherwise a run is
// created through a conditional insert and the pipeline begins
// asynchronously. The returned bool reports whether this call started the
// run.
func (c *Coordinator) Request(ctx context.Context, date time.Time) (*models.CalculationRun, bool, error) {
	key := models.DateKey(date)

	existing, err := c.runs.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}

	if existing != nil && existing.Status == models.CalculationInProgress && !existing.IsStale(c.cfg.MaxRunAge, c.now()) {
		log.Debug().
			Str("calculation_date", key).
			Str("calculation_id", existing.CalculationID).
			Msg("Calculation already in progress")
		return existing, false, nil
	}

	run := &models.CalculationRun{
		CalculationID:   newCalculationID(key),
		CalculationDate: key,
		Status:          models.CalculationInProgress,
		StartTime:       c.now(),
	}

	var admitted bool
	if existing == nil {
		admitted, err = c.runs.TryCreate(ctx, run, c.cfg.Retention)
	} else {
		// Stale or terminal record: replace it, but only while it is still
		// the record we read. A concurrent admission wins the swap and we
		// return its handle instead.
		admitted, err = c.runs.Replace(ctx, existing.CalculationID, run, c.cfg.Retention)
	}
	if err != nil {
		return nil, false, err
	}

	if !admitted {
		current, err := c.runs.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if current != nil {
			return current, false, nil
		}
		return nil, false, fmt.Errorf("lost admission race for %s but no run record exists", key)
	}

	log.Info().
		Str("calculation_date", key).
		Str("calculation_id", run.CalculationID).
		Msg("Calculation admitted")

	go c.execute(context.WithoutCancel(ctx), run)

	return run, true, nil
}

// Status returns the current run record for a date, nil when absent. An
// in_progress record past the staleness bound is reported as failed; the
// stalled worker will never finish it.
func (c *Coordinator) Status(ctx context.Context, date time.Time) (*models.CalculationRun, error) {
	run, err := c.runs.Get(ctx, models.DateKey(date))
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	if run.IsStale(c.cfg.MaxRunAge, c.now()) {
		stale := *run
		stale.Status = models.CalculationFailed
		stale.Error = "calculation exceeded maximum run age"
		return &stale, nil
	}
	return run, nil
}

// execute runs the full pipeline for an admitted run. It is the only place
// pipeline errors are caught: malformed input marks the run failed, while
// exhausted transient store errors clear the record so a retry can be
// admitted immediately.
func (c *Coordinator) execute(ctx context.Context, run *models.CalculationRun) {
	start := c.now()
	metrics.CalculationsInFlight.Inc()
	defer metrics.CalculationsInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("calculation_id", run.CalculationID).
				Interface("panic", r).
				Msg("Calculation panicked")
			c.fail(ctx, run, fmt.Errorf("unexpected fault: %v", r))
		}
	}()

	windowStart, windowEnd := c.window(run.CalculationDate)
	log.Info().
		Str("calculation_id", run.CalculationID).
		Time("window_start", windowStart).
		Time("window_end", windowEnd).
		Msg("Starting calculation pipeline")

	var matches []*models.Match
	err := c.withRetry(ctx, "load matches", func() error {
		var err error
		matches, err = c.matches.CompletedInRange(ctx, windowStart, windowEnd)
		return err
	})
	if err != nil {
		c.abandon(ctx, run, err)
		return
	}

	var teams map[string]*models.Team
	err = c.withRetry(ctx, "load teams", func() error {
		var err error
		teams, err = c.teams.All(ctx)
		return err
	})
	if err != nil {
		c.abandon(ctx, run, err)
		return
	}

	run.MatchesProcessed = len(matches)
	c.progress(ctx, run)

	records, err := engine.AggregateRecords(matches, teams)
	if err != nil {
		c.fail(ctx, run, err)
		return
	}

	run.TeamsCalculated = len(records)
	c.progress(ctx, run)

	results, err := engine.ComputeRPI(records)
	if err != nil {
		c.fail(ctx, run, err)
		return
	}
	c.enrich(results, teams)

	conferences := engine.RollupConferences(results, "")

	snapshot := &models.RankingSnapshot{
		CalculationDate: run.CalculationDate,
		TotalTeams:      len(results),
		Results:         results,
		Conferences:     conferences,
	}

	run.TeamsCalculated = len(results)
	c.progress(ctx, run)

	err = c.withRetry(ctx, "publish results", func() error {
		return c.sink.Publish(ctx, run.CalculationID, snapshot)
	})
	if err != nil {
		c.abandon(ctx, run, err)
		return
	}

	if c.cache != nil {
		// Drop any stale cached entry for the date before caching the new
		// snapshot. Cache writes are best-effort: the durable sink already
		// holds the published output.
		if err := c.cache.InvalidateDate(ctx, run.CalculationDate); err != nil {
			log.Warn().Err(err).Str("calculation_date", run.CalculationDate).Msg("Failed to invalidate cache")
		}
		if err := c.cache.Put(ctx, run.CalculationDate, snapshot); err != nil {
			log.Warn().Err(err).Str("calculation_date", run.CalculationDate).Msg("Failed to cache snapshot")
		}
	}

	now := c.now()
	run.Status = models.CalculationCompleted
	run.CompletionTime = &now
	if err := c.runs.Update(ctx, run, c.cfg.Retention); err != nil {
		log.Warn().Err(err).Str("calculation_id", run.CalculationID).Msg("Failed to record completion")
	}

	metrics.RecordCalculation(models.CalculationCompleted, now.Sub(start).Seconds())
	metrics.UpdateRunProgress(run.MatchesProcessed, run.TeamsCalculated)
	log.Info().
		Str("calculation_id", run.CalculationID).
		Str("calculation_date", run.CalculationDate).
		Int("matches", run.MatchesProcessed).
		Int("teams", run.TeamsCalculated).
		Dur("duration", now.Sub(start)).
		Msg("Calculation completed")
}

// fail marks the run failed and keeps the error for diagnostics. Failed is a
// terminal state; it will not be retried until a new admission replaces it.
func (c *Coordinator) fail(ctx context.Context, run *models.CalculationRun, cause error) {
	now := c.now()
	run.Status = models.CalculationFailed
	run.CompletionTime = &now
	run.Error = cause.Error()

	if err := c.runs.Update(ctx, run, c.cfg.Retention); err != nil {
		log.Warn().Err(err).Str("calculation_id", run.CalculationID).Msg("Failed to record failure")
	}

	metrics.RecordCalculation(models.CalculationFailed, now.Sub(run.StartTime).Seconds())
	metrics.RecordError("coordinator", errorType(cause))
	log.Error().
		Err(cause).
		Str("calculation_id", run.CalculationID).
		Str("calculation_date", run.CalculationDate).
		Msg("Calculation failed")
}

// abandon clears the run record after exhausted transient store errors,
// returning the date to absent so a retry can be admitted immediately.
func (c *Coordinator) abandon(ctx context.Context, run *models.CalculationRun, cause error) {
	if !errs.IsTransient(cause) {
		c.fail(ctx, run, cause)
		return
	}

	if err := c.runs.Clear(ctx, run.CalculationDate); err != nil {
		log.Warn().Err(err).Str("calculation_id", run.CalculationID).Msg("Failed to clear abandoned run")
	}

	metrics.RecordError("coordinator", "transient")
	log.Error().
		Err(cause).
		Str("calculation_id", run.CalculationID).
		Str("calculation_date", run.CalculationDate).
		Msg("Calculation abandoned after store errors, date eligible for retry")
}

// progress persists run counters so polling callers observe live progress.
// Progress writes are best-effort and never block the pipeline.
func (c *Coordinator) progress(ctx context.Context, run *models.CalculationRun) {
	if err := c.runs.Update(ctx, run, c.cfg.Retention); err != nil {
		log.Warn().Err(err).Str("calculation_id", run.CalculationID).Msg("Failed to update run progress")
	}
	metrics.UpdateRunProgress(run.MatchesProcessed, run.TeamsCalculated)
}

// withRetry retries transient store errors with bounded exponential backoff.
// Data errors and other faults pass through on the first attempt.
func (c *Coordinator) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return errs.NewTransient(op, ctx.Err())
			case <-time.After(delay):
			}
			log.Warn().
				Str("operation", op).
				Int("attempt", attempt).
				Msg("Retrying after transient store error")
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errs.IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// enrich fills result metadata from the team directory, defaulting to
// Unknown for teams without a directory entry.
func (c *Coordinator) enrich(results []models.RPIResult, teams map[string]*models.Team) {
	for i := range results {
		team, ok := teams[results[i].TeamID]
		if !ok {
			results[i].Conference = "Unknown"
			results[i].Organization = "Unknown"
			results[i].Division = "Unknown"
			results[i].Gender = "Unknown"
			continue
		}
		conference, organization, division, gender := team.MetaOrUnknown()
		results[i].Conference = conference
		results[i].Organization = organization
		results[i].Division = division
		results[i].Gender = gender
		if team.City.Valid {
			results[i].City = team.City.String
		}
		if team.State.Valid {
			results[i].State = team.State.String
		}
	}
}

// window returns the match window for a calculation date: season start
// through the whole of the calculation date. The end bound is exclusive,
// the first instant of the following day, so a match kicked off at any
// time of day on the calculation date is inside the window.
func (c *Coordinator) window(date string) (time.Time, time.Time) {
	day, err := models.ParseDateKey(date)
	if err != nil {
		// Admission built the key, so this cannot normally happen.
		day = c.now().UTC()
	}

	year := day.Year()
	start := time.Date(year, c.cfg.SeasonStartMonth, c.cfg.SeasonStartDay, 0, 0, 0, 0, time.UTC)
	if day.Before(start) {
		start = start.AddDate(-1, 0, 0)
	}
	return start, day.AddDate(0, 0, 1)
}

func newCalculationID(date string) string {
	return fmt.Sprintf("rpi_calc_%s_%08x", date, rand.Uint32())
}

func errorType(err error) string {
	switch {
	case errs.IsDataError(err):
		return "data"
	case errs.IsTransient(err):
		return "transient"
	default:
		return "unexpected"
	}
}
