package repository

import (
	"testing"

	"ncaasoccer_etl/rpi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishedSnapshot(date string) *models.RankingSnapshot {
	return &models.RankingSnapshot{
		CalculationDate: date,
		TotalTeams:      2,
		Results: []models.RPIResult{
			{
				CalculationDate: date, TeamID: "duke", Rank: 1,
				RPI: 0.5938, WP: 0.75, OWP: 0.5, OOWP: 0.625,
				Wins: 3, Losses: 1, Ties: 0, TotalGames: 4, WinPercentage: 0.75,
				Conference: "ACC", Organization: "NCAA", Division: "D1", Gender: "male",
			},
			{
				CalculationDate: date, TeamID: "unc", Rank: 2,
				RPI: 0.4063, WP: 0.5, OWP: 0.25, OOWP: 0.5,
				Wins: 2, Losses: 2, Ties: 0, TotalGames: 4, WinPercentage: 0.5,
				Conference: "ACC", Organization: "NCAA", Division: "D1", Gender: "male",
			},
		},
		Conferences: []models.ConferenceSummary{
			{
				CalculationDate: date, Conference: "ACC", Division: "D1", Rank: 1,
				TeamsCount: 2, AvgRPI: 0.5, AvgWP: 0.625, TopRank: 1,
				Top25Count: 2, Top50Count: 2, Top100Count: 2,
			},
		},
	}
}

func TestResultRepository_PublishAndRead(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	date := "2030-01-15"
	snapshot := publishedSnapshot(date)

	err := db.Results.Publish(ctx, "rpi_calc_2030-01-15_00000001", snapshot)
	require.NoError(t, err, "Should publish snapshot")

	read, err := db.Results.SnapshotByDate(ctx, date)
	require.NoError(t, err, "Should read back published snapshot")
	require.NotNil(t, read)

	assert.Equal(t, date, read.CalculationDate)
	assert.Equal(t, 2, read.TotalTeams)
	require.Len(t, read.Results, 2)
	assert.Equal(t, "duke", read.Results[0].TeamID, "Results come back in rank order")
	assert.Equal(t, 0.5938, read.Results[0].RPI)
	require.Len(t, read.Conferences, 1)
	assert.Equal(t, "ACC", read.Conferences[0].Conference)
}

func TestResultRepository_RepublishReplacesDate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	date := "2030-02-01"
	require.NoError(t, db.Results.Publish(ctx, "rpi_calc_2030-02-01_00000001", publishedSnapshot(date)))

	// Recalculation for the same date publishes a smaller snapshot.
	replacement := &models.RankingSnapshot{
		CalculationDate: date,
		TotalTeams:      1,
		Results: []models.RPIResult{
			{
				CalculationDate: date, TeamID: "wake", Rank: 1,
				RPI: 0.7, WP: 0.8, OWP: 0.6, OOWP: 0.7,
				Wins: 4, Losses: 1, TotalGames: 5, WinPercentage: 0.8,
				Conference: "ACC", Organization: "NCAA", Division: "D1", Gender: "male",
			},
		},
	}
	require.NoError(t, db.Results.Publish(ctx, "rpi_calc_2030-02-01_00000002", replacement))

	read, err := db.Results.SnapshotByDate(ctx, date)
	require.NoError(t, err)
	require.NotNil(t, read)
	assert.Equal(t, 1, read.TotalTeams)
	require.Len(t, read.Results, 1)
	assert.Equal(t, "wake", read.Results[0].TeamID, "Old rows for the date are gone")
	assert.Empty(t, read.Conferences)
}

func TestResultRepository_EmptySnapshotIsReadable(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	date := "2030-03-01"
	empty := &models.RankingSnapshot{CalculationDate: date}
	require.NoError(t, db.Results.Publish(ctx, "rpi_calc_2030-03-01_00000001", empty))

	// An empty calculation is still a published calculation, distinct from a
	// date that was never calculated.
	read, err := db.Results.SnapshotByDate(ctx, date)
	require.NoError(t, err)
	require.NotNil(t, read)
	assert.Equal(t, 0, read.TotalTeams)
	assert.Empty(t, read.Results)
}

func TestResultRepository_UnknownDateReturnsNil(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	read, err := db.Results.SnapshotByDate(ctx, "2031-12-31")
	require.NoError(t, err, "Missing date is not an error")
	assert.Nil(t, read)
}

func TestResultRepository_LatestDateOnOrBefore(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	require.NoError(t, db.Results.Publish(ctx, "rpi_calc_2030-04-01_00000001", publishedSnapshot("2030-04-01")))
	require.NoError(t, db.Results.Publish(ctx, "rpi_calc_2030-04-10_00000001", publishedSnapshot("2030-04-10")))

	// Exact hit
	latest, err := db.Results.LatestDateOnOrBefore(ctx, "2030-04-10")
	require.NoError(t, err)
	assert.Equal(t, "2030-04-10", latest)

	// Between two published dates: the earlier one wins
	latest, err = db.Results.LatestDateOnOrBefore(ctx, "2030-04-05")
	require.NoError(t, err)
	assert.Equal(t, "2030-04-01", latest)

	// Before everything
	latest, err = db.Results.LatestDateOnOrBefore(ctx, "2029-01-01")
	require.NoError(t, err)
	assert.Empty(t, latest, "Nothing published at or before the date")
}
