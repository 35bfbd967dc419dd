package models

import (
	"time"
)

// Calculation run statuses.
const (
	CalculationInProgress = "in_progress"
	CalculationCompleted  = "completed"
	CalculationFailed     = "failed"
)

// CalculationRun tracks one execution of the aggregate -> compute -> rollup
// pipeline for a single calculation date. Runs are created by the coordinator
// on admission and mutated only by the coordinator as the pipeline advances.
// Old runs expire from the status store after the retention window.
type CalculationRun struct {
	CalculationID    string     `json:"calculation_id"`
	CalculationDate  string     `json:"calculation_date"`
	Status           string     `json:"status"`
	StartTime        time.Time  `json:"start_time"`
	CompletionTime   *time.Time `json:"completion_time,omitempty"`
	MatchesProcessed int        `json:"matches_processed"`
	TeamsCalculated  int        `json:"teams_calculated"`
	Error            string     `json:"error,omitempty"`
}

// IsStale reports whether an in-progress run has exceeded the maximum run
// age and should be treated as failed. A crashed worker leaves its run stuck
// in_progress; the staleness bound is what lets a fresh run be admitted.
func (r *CalculationRun) IsStale(maxAge time.Duration, now time.Time) bool {
	return r.Status == CalculationInProgress && now.Sub(r.StartTime) > maxAge
}
