package repository

import (
	"context"
	"time"

	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/metrics"
	"ncaasoccer_etl/rpi/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// ResultRepository stores published calculation output: the ranked team
// results and conference summaries for each calculation date. A calculation
// date is published in a single transaction so readers never observe a
// half-written ranking.
type ResultRepository struct {
	db *Database
}

// Publish replaces any previously published output for the snapshot's
// calculation date with the snapshot's results and conference summaries.
func (r *ResultRepository) Publish(ctx context.Context, calculationID string, snapshot *models.RankingSnapshot) error {
	start := time.Now()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		metrics.RecordDBQuery("publish", "rpi_results", "error", time.Since(start).Seconds())
		return errs.NewTransient("begin publish", err)
	}
	defer tx.Rollback(ctx)

	date := snapshot.CalculationDate

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM rpi_results WHERE calculation_date = $1`, date)
	batch.Queue(`DELETE FROM conference_summaries WHERE calculation_date = $1`, date)
	batch.Queue(`
		INSERT INTO calculations (calculation_date, calculation_id, total_teams, completed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (calculation_date) DO UPDATE SET
			calculation_id = EXCLUDED.calculation_id,
			total_teams = EXCLUDED.total_teams,
			completed_at = NOW()
	`, date, calculationID, snapshot.TotalTeams)

	for _, res := range snapshot.Results {
		batch.Queue(`
			INSERT INTO rpi_results (
				calculation_date, team_id, rank, rpi, wp, owp, oowp,
				wins, losses, ties, total_games, win_percentage,
				conference, organization, division, gender, city, state
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`,
			date, res.TeamID, res.Rank, res.RPI, res.WP, res.OWP, res.OOWP,
			res.Wins, res.Losses, res.Ties, res.TotalGames, res.WinPercentage,
			res.Conference, res.Organization, res.Division, res.Gender, res.City, res.State,
		)
	}

	for _, cs := range snapshot.Conferences {
		batch.Queue(`
			INSERT INTO conference_summaries (
				calculation_date, conference, division, rank, teams_count,
				avg_rpi, avg_wp, avg_owp, avg_oowp, avg_rank, avg_win_percentage,
				top_rank, top_25_count, top_50_count, top_100_count
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			date, cs.Conference, cs.Division, cs.Rank, cs.TeamsCount,
			cs.AvgRPI, cs.AvgWP, cs.AvgOWP, cs.AvgOOWP, cs.AvgRank, cs.AvgWinPercentage,
			cs.TopRank, cs.Top25Count, cs.Top50Count, cs.Top100Count,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		metrics.RecordDBQuery("publish", "rpi_results", "error", time.Since(start).Seconds())
		return errs.NewTransient("publish results", err)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDBQuery("publish", "rpi_results", "error", time.Since(start).Seconds())
		return errs.NewTransient("commit publish", err)
	}

	metrics.RecordDBQuery("publish", "rpi_results", "success", time.Since(start).Seconds())
	log.Info().
		Str("calculation_date", date).
		Str("calculation_id", calculationID).
		Int("teams", len(snapshot.Results)).
		Int("conferences", len(snapshot.Conferences)).
		Msg("Published calculation results")
	return nil
}

// SnapshotByDate loads the published snapshot for an exact calculation date,
// nil when that date has never been published.
func (r *ResultRepository) SnapshotByDate(ctx context.Context, date string) (*models.RankingSnapshot, error) {
	var totalTeams int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT total_teams FROM calculations WHERE calculation_date = $1`, date,
	).Scan(&totalTeams)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewTransient("get calculation", err)
	}

	results, err := r.resultsByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	conferences, err := r.summariesByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	return &models.RankingSnapshot{
		CalculationDate: date,
		TotalTeams:      totalTeams,
		Results:         results,
		Conferences:     conferences,
	}, nil
}

// LatestDateOnOrBefore returns the most recent published calculation date at
// or before the requested date, "" when none exists.
func (r *ResultRepository) LatestDateOnOrBefore(ctx context.Context, date string) (string, error) {
	var latest string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT calculation_date FROM calculations WHERE calculation_date <= $1 ORDER BY calculation_date DESC LIMIT 1`,
		date,
	).Scan(&latest)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.NewTransient("get latest calculation date", err)
	}
	return latest, nil
}

func (r *ResultRepository) resultsByDate(ctx context.Context, date string) ([]models.RPIResult, error) {
	query := `
		SELECT calculation_date, team_id, rank, rpi, wp, owp, oowp,
		       wins, losses, ties, total_games, win_percentage,
		       conference, organization, division, gender, city, state
		FROM rpi_results
		WHERE calculation_date = $1
		ORDER BY rank
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, date)
	if err != nil {
		metrics.RecordDBQuery("select", "rpi_results", "error", time.Since(start).Seconds())
		return nil, errs.NewTransient("load results", err)
	}
	defer rows.Close()

	var results []models.RPIResult
	for rows.Next() {
		var res models.RPIResult
		err := rows.Scan(
			&res.CalculationDate, &res.TeamID, &res.Rank, &res.RPI, &res.WP, &res.OWP, &res.OOWP,
			&res.Wins, &res.Losses, &res.Ties, &res.TotalGames, &res.WinPercentage,
			&res.Conference, &res.Organization, &res.Division, &res.Gender, &res.City, &res.State,
		)
		if err != nil {
			metrics.RecordDBQuery("select", "rpi_results", "error", time.Since(start).Seconds())
			return nil, errs.NewTransient("scan result", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("select", "rpi_results", "error", time.Since(start).Seconds())
		return nil, errs.NewTransient("iterate results", err)
	}

	metrics.RecordDBQuery("select", "rpi_results", "success", time.Since(start).Seconds())
	return results, nil
}

func (r *ResultRepository) summariesByDate(ctx context.Context, date string) ([]models.ConferenceSummary, error) {
	query := `
		SELECT calculation_date, conference, division, rank, teams_count,
		       avg_rpi, avg_wp, avg_owp, avg_oowp, avg_rank, avg_win_percentage,
		       top_rank, top_25_count, top_50_count, top_100_count
		FROM conference_summaries
		WHERE calculation_date = $1
		ORDER BY rank
	`

	rows, err := r.db.Pool.Query(ctx, query, date)
	if err != nil {
		return nil, errs.NewTransient("load conference summaries", err)
	}
	defer rows.Close()

	var summaries []models.ConferenceSummary
	for rows.Next() {
		var cs models.ConferenceSummary
		err := rows.Scan(
			&cs.CalculationDate, &cs.Conference, &cs.Division, &cs.Rank, &cs.TeamsCount,
			&cs.AvgRPI, &cs.AvgWP, &cs.AvgOWP, &cs.AvgOOWP, &cs.AvgRank, &cs.AvgWinPercentage,
			&cs.TopRank, &cs.Top25Count, &cs.Top50Count, &cs.Top100Count,
		)
		if err != nil {
			return nil, errs.NewTransient("scan conference summary", err)
		}
		summaries = append(summaries, cs)
	}

	if err := rows.Err(); err != nil {
		return nil, errs.NewTransient("iterate conference summaries", err)
	}

	return summaries, nil
}
