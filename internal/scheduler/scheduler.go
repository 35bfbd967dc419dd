package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ncaasoccer_etl/rpi/internal/config"
	"ncaasoccer_etl/rpi/internal/metrics"
	"ncaasoccer_etl/rpi/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Calculator is the coordinator surface the scheduler drives.
type Calculator interface {
	Request(ctx context.Context, date time.Time) (*models.CalculationRun, bool, error)
	Status(ctx context.Context, date time.Time) (*models.CalculationRun, error)
}

// Scheduler manages background calculation tasks:
// - Daily recalculation on a cron schedule
// - Polling the active run so its progress shows up in metrics
type Scheduler struct {
	cfg        *config.Config
	calculator Calculator
	cron       *cron.Cron
	ticker     *time.Ticker
	stopChan   chan struct{}

	mu         sync.Mutex
	activeDate time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, calculator Calculator) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		calculator: calculator,
		cron:       cron.New(),
		stopChan:   make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	// Setup daily recalculation cron job
	if _, err := s.cron.AddFunc(s.cfg.DailyCalculationCron, func() {
		if err := s.triggerDailyCalculation(ctx); err != nil {
			log.Error().Err(err).Msg("Daily calculation trigger failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule daily calculation: %w", err)
	}

	// Start cron scheduler
	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.DailyCalculationCron).
		Msg("Daily calculation scheduled")

	// Start run progress polling ticker
	s.ticker = time.NewTicker(s.cfg.RunPollInterval)
	log.Info().
		Dur("interval", s.cfg.RunPollInterval).
		Msg("Run progress polling started")

	// Start polling goroutine
	go s.pollActiveRun(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// triggerDailyCalculation requests a calculation for today's date. A run
// already in flight for the date is left alone.
func (s *Scheduler) triggerDailyCalculation(ctx context.Context) error {
	date := time.Now().UTC()

	run, started, err := s.calculator.Request(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to request daily calculation: %w", err)
	}

	s.mu.Lock()
	s.activeDate = date
	s.mu.Unlock()

	if started {
		log.Info().
			Str("calculation_id", run.CalculationID).
			Str("calculation_date", run.CalculationDate).
			Msg("Daily calculation started")
	} else {
		log.Info().
			Str("calculation_id", run.CalculationID).
			Str("calculation_date", run.CalculationDate).
			Str("status", run.Status).
			Msg("Daily calculation already handled")
	}

	return nil
}

// pollActiveRun continuously polls the most recently triggered run and
// exports its progress to metrics.
func (s *Scheduler) pollActiveRun(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping run polling")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping run polling")
			return
		case <-s.ticker.C:
			if err := s.reportRunProgress(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to poll run progress")
			}
		}
	}
}

// reportRunProgress reads the status of the tracked calculation date and
// pushes its counters into the metric gauges.
func (s *Scheduler) reportRunProgress(ctx context.Context) error {
	s.mu.Lock()
	date := s.activeDate
	s.mu.Unlock()

	if date.IsZero() {
		return nil
	}

	run, err := s.calculator.Status(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if run == nil {
		return nil
	}

	metrics.UpdateRunProgress(run.MatchesProcessed, run.TeamsCalculated)

	switch run.Status {
	case models.CalculationInProgress:
		log.Debug().
			Str("calculation_id", run.CalculationID).
			Int("matches_processed", run.MatchesProcessed).
			Int("teams_calculated", run.TeamsCalculated).
			Msg("Calculation in progress")
	case models.CalculationCompleted:
		if run.CompletionTime != nil {
			metrics.LastCompletedCalculation.Set(float64(run.CompletionTime.Unix()))
		}
		// Terminal state, stop tracking until the next trigger.
		s.mu.Lock()
		s.activeDate = time.Time{}
		s.mu.Unlock()
	case models.CalculationFailed:
		log.Warn().
			Str("calculation_id", run.CalculationID).
			Str("error", run.Error).
			Msg("Tracked calculation failed")
		s.mu.Lock()
		s.activeDate = time.Time{}
		s.mu.Unlock()
	}

	return nil
}
