// Package service is the read surface over published rankings. It resolves a
// requested calculation date through the cache tiers and the results store,
// falls back to the latest earlier date when the exact one was never
// calculated, and reports in-progress calculations to polling callers.
package service

import (
	"context"
	"fmt"
	"time"

	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/metrics"
	"ncaasoccer_etl/rpi/internal/models"

	"github.com/rs/zerolog/log"
)

// ResultReader reads published calculation output.
type ResultReader interface {
	SnapshotByDate(ctx context.Context, date string) (*models.RankingSnapshot, error)
	LatestDateOnOrBefore(ctx context.Context, date string) (string, error)
}

// RunCoordinator admits calculations and reports run status.
type RunCoordinator interface {
	Request(ctx context.Context, date time.Time) (*models.CalculationRun, bool, error)
	Status(ctx context.Context, date time.Time) (*models.CalculationRun, error)
}

// SnapshotCache is the two-tier result cache in front of the results store.
type SnapshotCache interface {
	Get(ctx context.Context, date string) (*models.RankingSnapshot, string, error)
	Put(ctx context.Context, date string, snapshot *models.RankingSnapshot) error
	Invalidate(ctx context.Context) error
}

// Filters narrow a ranking read. Empty fields match everything.
type Filters struct {
	Organization string
	Division     string
	Gender       string
	Conference   string
}

func (f Filters) matches(r *models.RPIResult) bool {
	if f.Organization != "" && r.Organization != f.Organization {
		return false
	}
	if f.Division != "" && r.Division != f.Division {
		return false
	}
	if f.Gender != "" && r.Gender != f.Gender {
		return false
	}
	if f.Conference != "" && r.Conference != f.Conference {
		return false
	}
	return true
}

// RankingResponse is a resolved ranking read. CalculationDate is the date the
// data was actually calculated for, which differs from the requested date on a
// fallback. Ranks are the stored ranks from the full calculation; filters
// narrow the rows without re-ranking.
type RankingResponse struct {
	CalculationDate string                     `json:"calculation_date"`
	TotalTeams      int                        `json:"total_teams"`
	Results         []models.RPIResult         `json:"results"`
	Conferences     []models.ConferenceSummary `json:"conferences,omitempty"`
	Cached          bool                       `json:"cached"`
	CacheTier       string                     `json:"cache_tier,omitempty"`
	Fallback        bool                       `json:"fallback"`
}

// StatusResponse reports calculation state for a date.
type StatusResponse struct {
	CalculationDate         string                 `json:"calculation_date"`
	HasOngoingCalculation   bool                   `json:"has_ongoing_calculation"`
	OngoingCalculation      *models.CalculationRun `json:"ongoing_calculation,omitempty"`
	HasCompletedCalculation bool                   `json:"has_completed_calculation"`
	LatestCompleted         *models.CalculationRun `json:"latest_completed,omitempty"`
	LatestCompletedDate     string                 `json:"latest_completed_date,omitempty"`
}

// Service answers ranking reads.
type Service struct {
	results     ResultReader
	coordinator RunCoordinator
	cache       SnapshotCache
}

// New builds the read service. cache may be nil to read straight through to
// the results store.
func New(results ResultReader, coordinator RunCoordinator, cache SnapshotCache) *Service {
	return &Service{
		results:     results,
		coordinator: coordinator,
		cache:       cache,
	}
}

// Rankings resolves the rankings for a date. Resolution order: live
// in-progress run for the date, cache tiers, results store exact date,
// results store latest earlier date. A total miss requests a calculation
// best-effort and returns ErrNotFound.
func (s *Service) Rankings(ctx context.Context, date time.Time, filters Filters) (*RankingResponse, error) {
	key := models.DateKey(date)

	run, err := s.coordinator.Status(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check calculation status: %w", err)
	}
	if run != nil && run.Status == models.CalculationInProgress {
		metrics.RecordRankingRead("in_progress")
		return nil, errs.ErrInProgress
	}

	if s.cache != nil {
		snap, tier, err := s.cache.Get(ctx, key)
		if err != nil {
			// Cache trouble never fails a read; the results store is
			// authoritative.
			log.Warn().Err(err).Str("calculation_date", key).Msg("Cache read failed")
		} else if snap != nil {
			metrics.RecordRankingRead("cache_" + tier)
			return s.respond(key, snap, filters, true, tier, false), nil
		}
	}

	snap, err := s.results.SnapshotByDate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load rankings for %s: %w", key, err)
	}
	if snap != nil {
		s.cacheFill(ctx, key, snap)
		metrics.RecordRankingRead("store")
		return s.respond(key, snap, filters, false, "", false), nil
	}

	fallbackDate, err := s.results.LatestDateOnOrBefore(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find fallback date for %s: %w", key, err)
	}
	if fallbackDate != "" {
		snap, err = s.results.SnapshotByDate(ctx, fallbackDate)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback rankings for %s: %w", fallbackDate, err)
		}
		if snap != nil {
			s.cacheFill(ctx, fallbackDate, snap)
			metrics.RecordRankingRead("fallback")
			log.Info().
				Str("requested_date", key).
				Str("served_date", fallbackDate).
				Msg("Serving fallback rankings")
			return s.respond(fallbackDate, snap, filters, false, "", true), nil
		}
	}

	// Nothing published at or before this date. Kick off a calculation so a
	// later poll can succeed, but the current read is still a miss.
	if _, started, err := s.coordinator.Request(ctx, date); err != nil {
		log.Warn().Err(err).Str("calculation_date", key).Msg("Failed to request calculation on miss")
	} else if started {
		log.Info().Str("calculation_date", key).Msg("Requested calculation for missing date")
	}

	metrics.RecordRankingRead("miss")
	return nil, errs.ErrNotFound
}

// ConferenceRankings resolves conference summaries for a date. The division
// and conference filters narrow the summary rows.
func (s *Service) ConferenceRankings(ctx context.Context, date time.Time, division, conference string) (*RankingResponse, error) {
	resp, err := s.Rankings(ctx, date, Filters{})
	if err != nil {
		return nil, err
	}

	filtered := make([]models.ConferenceSummary, 0, len(resp.Conferences))
	for _, summary := range resp.Conferences {
		if division != "" && summary.Division != division {
			continue
		}
		if conference != "" && summary.Conference != conference {
			continue
		}
		filtered = append(filtered, summary)
	}

	resp.Results = nil
	resp.Conferences = filtered
	return resp, nil
}

// Status reports the calculation state for a date: any live run plus the
// latest completed calculation at or before it.
func (s *Service) Status(ctx context.Context, date time.Time) (*StatusResponse, error) {
	key := models.DateKey(date)
	resp := &StatusResponse{CalculationDate: key}

	run, err := s.coordinator.Status(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check calculation status: %w", err)
	}
	if run != nil {
		switch run.Status {
		case models.CalculationInProgress:
			resp.HasOngoingCalculation = true
			resp.OngoingCalculation = run
		case models.CalculationCompleted:
			resp.HasCompletedCalculation = true
			resp.LatestCompleted = run
			resp.LatestCompletedDate = run.CalculationDate
		}
	}

	if !resp.HasCompletedCalculation {
		latest, err := s.results.LatestDateOnOrBefore(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to find latest completed date: %w", err)
		}
		if latest != "" {
			resp.HasCompletedCalculation = true
			resp.LatestCompletedDate = latest
		}
	}

	return resp, nil
}

// RequestCalculation admits a calculation for the date. The bool reports
// whether this call started a new run.
func (s *Service) RequestCalculation(ctx context.Context, date time.Time) (*models.CalculationRun, bool, error) {
	return s.coordinator.Request(ctx, date)
}

// ClearCache wipes both cache tiers. Run history is untouched.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func (s *Service) respond(date string, snap *models.RankingSnapshot, filters Filters, cached bool, tier string, fallback bool) *RankingResponse {
	results := snap.Results
	if filters != (Filters{}) {
		results = make([]models.RPIResult, 0, len(snap.Results))
		for i := range snap.Results {
			if filters.matches(&snap.Results[i]) {
				results = append(results, snap.Results[i])
			}
		}
	}

	return &RankingResponse{
		CalculationDate: date,
		TotalTeams:      snap.TotalTeams,
		Results:         results,
		Conferences:     snap.Conferences,
		Cached:          cached,
		CacheTier:       tier,
		Fallback:        fallback,
	}
}

// cacheFill stores a snapshot read from the results store, best-effort.
func (s *Service) cacheFill(ctx context.Context, date string, snap *models.RankingSnapshot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, date, snap); err != nil {
		log.Warn().Err(err).Str("calculation_date", date).Msg("Failed to cache snapshot")
	}
}
