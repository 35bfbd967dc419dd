package repository

import (
	"database/sql"
	"testing"

	"ncaasoccer_etl/rpi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	team := &models.Team{
		TeamID:       "north-carolina",
		Name:         "North Carolina",
		Conference:   sql.NullString{String: "ACC", Valid: true},
		Organization: sql.NullString{String: "NCAA", Valid: true},
		Division:     sql.NullString{String: "D1", Valid: true},
		Gender:       sql.NullString{String: "male", Valid: true},
		City:         sql.NullString{String: "Chapel Hill", Valid: true},
		State:        sql.NullString{String: "NC", Valid: true},
	}

	// Insert new team
	err := db.Teams.Upsert(ctx, team)
	require.NoError(t, err, "Should successfully insert team")
	assert.NotZero(t, team.ID, "Insert should populate the row id")

	// Verify team was created
	retrieved, err := db.Teams.GetByTeamID(ctx, team.TeamID)
	require.NoError(t, err, "Should retrieve inserted team")
	require.NotNil(t, retrieved)
	assert.Equal(t, team.Name, retrieved.Name, "Team names should match")
	assert.Equal(t, "ACC", retrieved.Conference.String, "Conferences should match")

	// Update existing team
	team.Conference = sql.NullString{String: "Big Ten", Valid: true}
	err = db.Teams.Upsert(ctx, team)
	require.NoError(t, err, "Should successfully update team")

	// Verify update
	updated, err := db.Teams.GetByTeamID(ctx, team.TeamID)
	require.NoError(t, err, "Should retrieve updated team")
	require.NotNil(t, updated)
	assert.Equal(t, "Big Ten", updated.Conference.String, "Conference should be updated")
}

func TestTeamRepository_All(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	teams := []*models.Team{
		{TeamID: "duke", Name: "Duke", Conference: sql.NullString{String: "ACC", Valid: true}},
		{TeamID: "stanford", Name: "Stanford", Conference: sql.NullString{String: "ACC", Valid: true}},
		{TeamID: "akron", Name: "Akron", Conference: sql.NullString{String: "MAC", Valid: true}},
	}

	for _, team := range teams {
		err := db.Teams.Upsert(ctx, team)
		require.NoError(t, err, "Should insert team")
	}

	directory, err := db.Teams.All(ctx)
	require.NoError(t, err, "Should load team directory")
	assert.GreaterOrEqual(t, len(directory), 3, "Should have at least 3 teams")

	duke, ok := directory["duke"]
	require.True(t, ok, "Directory should be keyed by team id")
	assert.Equal(t, "Duke", duke.Name)
}

func TestTeamRepository_GetNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// Unknown teams return nil rather than an error
	team, err := db.Teams.GetByTeamID(ctx, "no-such-team")
	require.NoError(t, err, "Missing team is not an error")
	assert.Nil(t, team)
}

func TestTeamRepository_MetadataDefaults(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// A team with no metadata at all
	team := &models.Team{TeamID: "mystery-fc", Name: "Mystery FC"}
	require.NoError(t, db.Teams.Upsert(ctx, team))

	retrieved, err := db.Teams.GetByTeamID(ctx, "mystery-fc")
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	conference, organization, division, gender := retrieved.MetaOrUnknown()
	assert.Equal(t, "Unknown", conference)
	assert.Equal(t, "Unknown", organization)
	assert.Equal(t, "Unknown", division)
	assert.Equal(t, "Unknown", gender)
}
