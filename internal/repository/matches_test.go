package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertMatch writes a match row directly. The match table belongs to the
// upstream collector, so the repository has no write path of its own.
func insertMatch(t *testing.T, db *Database, ctx context.Context, matchID string, date time.Time, home, away string, homeScore, awayScore *int, status string) {
	t.Helper()

	query := `
		INSERT INTO matches (match_id, match_date, home_team, away_team, home_score, away_score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (match_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			status = EXCLUDED.status,
			updated_at = NOW()
	`
	_, err := db.Pool.Exec(ctx, query, matchID, date, home, away, homeScore, awayScore, status)
	require.NoError(t, err, "Should insert match fixture")
}

func score(v int) *int {
	return &v
}

func TestMatchRepository_CompletedInRange(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	inside := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	insertMatch(t, db, ctx, "test-range-1", inside, "duke", "unc", score(2), score(1), "completed")
	insertMatch(t, db, ctx, "test-range-2", inside.AddDate(0, 0, 3), "unc", "wake", score(0), score(0), "completed")
	insertMatch(t, db, ctx, "test-range-3", before, "duke", "wake", score(1), score(0), "completed")
	insertMatch(t, db, ctx, "test-range-4", inside.AddDate(0, 0, 5), "wake", "duke", nil, nil, "scheduled")

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	matches, err := db.Matches.CompletedInRange(ctx, start, end)
	require.NoError(t, err, "Should load completed matches")

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.MatchID)
	}
	assert.Contains(t, ids, "test-range-1")
	assert.Contains(t, ids, "test-range-2")
	assert.NotContains(t, ids, "test-range-3", "Matches outside the window are excluded")
	assert.NotContains(t, ids, "test-range-4", "Scheduled matches are excluded")
}

func TestMatchRepository_OrderIsDeterministic(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	date := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	insertMatch(t, db, ctx, "test-order-b", date, "duke", "unc", score(1), score(0), "completed")
	insertMatch(t, db, ctx, "test-order-a", date, "wake", "state", score(2), score(2), "completed")

	dayAfter := date.AddDate(0, 0, 1)
	first, err := db.Matches.CompletedInRange(ctx, date, dayAfter)
	require.NoError(t, err)
	second, err := db.Matches.CompletedInRange(ctx, date, dayAfter)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].MatchID, second[i].MatchID, "Repeated reads should return the same order")
	}
}

func TestMatchRepository_SameDayMatchIsIncluded(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// Afternoon kickoff on the last day of the window.
	insertMatch(t, db, ctx, "test-sameday-1",
		time.Date(2025, 9, 30, 15, 0, 0, 0, time.UTC), "duke", "unc", score(2), score(0), "completed")
	// First instant past the window.
	insertMatch(t, db, ctx, "test-sameday-2",
		time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), "unc", "wake", score(1), score(1), "completed")

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	matches, err := db.Matches.CompletedInRange(ctx, start, end)
	require.NoError(t, err)

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.MatchID)
	}
	assert.Contains(t, ids, "test-sameday-1", "kickoff time of day must not truncate the window")
	assert.NotContains(t, ids, "test-sameday-2", "the end bound is exclusive")
}

func TestMatchRepository_Count(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	insertMatch(t, db, ctx, "test-count-1",
		time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), "duke", "unc", score(3), score(1), "completed")

	count, err := db.Matches.Count(ctx)
	require.NoError(t, err, "Should count matches")
	assert.GreaterOrEqual(t, count, 1)
}
