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

// TeamRepository is the team metadata directory: conference, organization,
// division and gender per team id.
type TeamRepository struct {
	db *Database
}

const teamColumns = `
	id, team_id, team_name, conference, organization, division, gender,
	city, state, created_at, updated_at
`

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	err := row.Scan(
		&t.ID, &t.TeamID, &t.Name, &t.Conference, &t.Organization, &t.Division,
		&t.Gender, &t.City, &t.State, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert inserts or updates a team's metadata
func (r *TeamRepository) Upsert(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (team_id, team_name, conference, organization, division, gender, city, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (team_id) DO UPDATE SET
			team_name = EXCLUDED.team_name,
			conference = EXCLUDED.conference,
			organization = EXCLUDED.organization,
			division = EXCLUDED.division,
			gender = EXCLUDED.gender,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(
		ctx, query,
		team.TeamID, team.Name, team.Conference, team.Organization,
		team.Division, team.Gender, team.City, team.State,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)

	if err != nil {
		metrics.RecordDBQuery("upsert", "teams", "error", time.Since(start).Seconds())
		return errs.NewTransient("upsert team", err)
	}

	metrics.RecordDBQuery("upsert", "teams", "success", time.Since(start).Seconds())
	log.Debug().
		Str("team_id", team.TeamID).
		Str("name", team.Name).
		Msg("Team saved")
	return nil
}

// GetByTeamID retrieves one team's metadata, nil when the team is unknown
func (r *TeamRepository) GetByTeamID(ctx context.Context, teamID string) (*models.Team, error) {
	query := `SELECT` + teamColumns + `FROM teams WHERE team_id = $1`

	team, err := scanTeam(r.db.Pool.QueryRow(ctx, query, teamID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewTransient("get team", err)
	}

	return team, nil
}

// All retrieves the full team directory keyed by team id
func (r *TeamRepository) All(ctx context.Context) (map[string]*models.Team, error) {
	query := `SELECT` + teamColumns + `FROM teams ORDER BY team_id`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		metrics.RecordDBQuery("select", "teams", "error", time.Since(start).Seconds())
		return nil, errs.NewTransient("load teams", err)
	}
	defer rows.Close()

	teams := make(map[string]*models.Team)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			metrics.RecordDBQuery("select", "teams", "error", time.Since(start).Seconds())
			return nil, errs.NewTransient("scan team", err)
		}
		teams[team.TeamID] = team
	}

	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("select", "teams", "error", time.Since(start).Seconds())
		return nil, errs.NewTransient("iterate teams", err)
	}

	metrics.RecordDBQuery("select", "teams", "success", time.Since(start).Seconds())
	return teams, nil
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM teams`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, errs.NewTransient("count teams", err)
	}

	return count, nil
}
