package repository

import (
	"context"
	"time"

	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/metrics"
	"ncaasoccer_etl/rpi/internal/models"

	"github.com/rs/zerolog/log"
)

// MatchRepository reads completed matches for calculation windows. The match
// table is owned by the upstream collector; the engine never writes to it.
type MatchRepository struct {
	db *Database
}

// CompletedInRange retrieves all completed matches with a date inside
// [start, end), ordered by date then match id so callers iterate
// deterministically. The upper bound is exclusive: callers pass the first
// instant after the window so same-day kickoff times are never truncated
// away.
func (r *MatchRepository) CompletedInRange(ctx context.Context, start, end time.Time) ([]*models.Match, error) {
	query := `
		SELECT id, match_id, match_date, home_team, away_team,
		       home_score, away_score, status, created_at, updated_at
		FROM matches
		WHERE status = 'completed' AND match_date >= $1 AND match_date < $2
		ORDER BY match_date, match_id
	`

	queryStart := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, start, end)
	if err != nil {
		metrics.RecordDBQuery("select", "matches", "error", time.Since(queryStart).Seconds())
		return nil, errs.NewTransient("load matches", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		var m models.Match
		err := rows.Scan(
			&m.ID, &m.MatchID, &m.Date, &m.HomeTeam, &m.AwayTeam,
			&m.HomeScore, &m.AwayScore, &m.Status, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			metrics.RecordDBQuery("select", "matches", "error", time.Since(queryStart).Seconds())
			return nil, errs.NewTransient("scan match", err)
		}
		matches = append(matches, &m)
	}

	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("select", "matches", "error", time.Since(queryStart).Seconds())
		return nil, errs.NewTransient("iterate matches", err)
	}

	metrics.RecordDBQuery("select", "matches", "success", time.Since(queryStart).Seconds())
	log.Debug().
		Int("count", len(matches)).
		Time("start", start).
		Time("end", end).
		Msg("Retrieved completed matches")
	return matches, nil
}

// Count returns the total number of matches
func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM matches`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, errs.NewTransient("count matches", err)
	}

	return count, nil
}
