package models

import (
	"time"
)

// Match statuses as stored by the upstream collector.
const (
	MatchStatusScheduled = "scheduled"
	MatchStatusCompleted = "completed"
	MatchStatusCancelled = "cancelled"
)

// Match represents a single completed or scheduled match between two teams.
// Matches are immutable facts owned by the match store; the engine only reads them.
type Match struct {
	ID        int       `db:"id"`
	MatchID   string    `db:"match_id"`
	Date      time.Time `db:"match_date"`
	HomeTeam  string    `db:"home_team"`
	AwayTeam  string    `db:"away_team"`
	HomeScore *int      `db:"home_score"`
	AwayScore *int      `db:"away_score"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsCompleted reports whether the match has a final result.
func (m *Match) IsCompleted() bool {
	return m.Status == MatchStatusCompleted
}

// IsTie reports whether the match ended with equal, non-nil scores.
func (m *Match) IsTie() bool {
	return m.HomeScore != nil && m.AwayScore != nil && *m.HomeScore == *m.AwayScore
}

// DateKey formats a time as the calculation-date key used across the
// status store, cache and result tables.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDateKey parses a calculation-date key back into a time.
func ParseDateKey(key string) (time.Time, error) {
	return time.Parse("2006-01-02", key)
}
