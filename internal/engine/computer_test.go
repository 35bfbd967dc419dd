package engine

import (
	"testing"

	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourTeamRecords builds the record graph for:
// A beats B 2-1, B beats C 1-0, C ties D 1-1, D beats A 2-0.
func fourTeamRecords(t *testing.T) map[string]*models.TeamRecord {
	t.Helper()

	matches := []*models.Match{
		testMatch("m1", "A", "B", 2, 1),
		testMatch("m2", "B", "C", 1, 0),
		testMatch("m3", "C", "D", 1, 1),
		testMatch("m4", "D", "A", 2, 0),
	}

	records, err := AggregateRecords(matches, testTeams("A", "B", "C", "D"))
	require.NoError(t, err)
	return records
}

func TestComputeRPI_FourTeamScenario(t *testing.T) {
	results, err := ComputeRPI(fourTeamRecords(t))
	require.NoError(t, err)
	require.Len(t, results, 4)

	byTeam := make(map[string]models.RPIResult, len(results))
	for _, r := range results {
		byTeam[r.TeamID] = r
	}

	// Hand-computed components. Every value is an exact binary fraction,
	// so equality checks are safe.
	assert.Equal(t, 0.5, byTeam["A"].WP)
	assert.Equal(t, 0.5, byTeam["B"].WP)
	assert.Equal(t, 0.25, byTeam["C"].WP)
	assert.Equal(t, 0.75, byTeam["D"].WP)

	// OWP with head-to-head games excluded from each opponent's record.
	assert.Equal(t, 0.75, byTeam["A"].OWP)
	assert.Equal(t, 0.25, byTeam["B"].OWP)
	assert.Equal(t, 0.5, byTeam["C"].OWP)
	assert.Equal(t, 0.5, byTeam["D"].OWP)

	// OOWP averages opponents' OWP with no third-hop exclusion.
	assert.Equal(t, 0.375, byTeam["A"].OOWP)
	assert.Equal(t, 0.625, byTeam["B"].OOWP)
	assert.Equal(t, 0.375, byTeam["C"].OOWP)
	assert.Equal(t, 0.625, byTeam["D"].OOWP)

	// RPI = 0.25*WP + 0.50*OWP + 0.25*OOWP, stored rounded to 4 places.
	// A and D tie at 0.59375, B and C tie at 0.40625; WP breaks both ties.
	assert.Equal(t, 0.5938, byTeam["A"].RPI)
	assert.Equal(t, 0.4063, byTeam["B"].RPI)
	assert.Equal(t, 0.4063, byTeam["C"].RPI)
	assert.Equal(t, 0.5938, byTeam["D"].RPI)

	order := []string{results[0].TeamID, results[1].TeamID, results[2].TeamID, results[3].TeamID}
	assert.Equal(t, []string{"D", "A", "B", "C"}, order)
}

func TestComputeRPI_RanksAreDense(t *testing.T) {
	results, err := ComputeRPI(fourTeamRecords(t))
	require.NoError(t, err)

	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestComputeRPI_Deterministic(t *testing.T) {
	first, err := ComputeRPI(fourTeamRecords(t))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ComputeRPI(fourTeamRecords(t))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeRPI_ZeroGameTeamsExcluded(t *testing.T) {
	records := fourTeamRecords(t)
	records["idle"] = &models.TeamRecord{TeamID: "idle"}

	results, err := ComputeRPI(records)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.NotEqual(t, "idle", r.TeamID)
	}
}

func TestComputeRPI_PhantomOpponentIsError(t *testing.T) {
	records := fourTeamRecords(t)
	records["A"].Games = append(records["A"].Games, models.GameRef{Opponent: "phantom", Outcome: models.OutcomeWin})

	_, err := ComputeRPI(records)
	require.Error(t, err)
	assert.True(t, errs.IsDataError(err))
	assert.Contains(t, err.Error(), "phantom")
}

func TestComputeRPI_EmptyInput(t *testing.T) {
	results, err := ComputeRPI(map[string]*models.TeamRecord{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// The exclusion law: team A's OWP contribution from opponent B must equal
// B's win percentage with every A-B game removed from B's record.
func TestComputeRPI_OWPExclusionLaw(t *testing.T) {
	records := fourTeamRecords(t)

	for teamID, rec := range records {
		for _, g := range rec.Games {
			opponent := records[g.Opponent]
			wins, losses, ties := opponent.RecordVersus(teamID)

			exWins := opponent.Wins - wins
			exTies := opponent.Ties - ties
			exTotal := opponent.TotalGames() - wins - losses - ties

			want := 0.0
			if exTotal > 0 {
				want = (float64(exWins) + 0.5*float64(exTies)) / float64(exTotal)
			}
			assert.Equal(t, want, excludedWinPercentage(opponent, teamID),
				"exclusion law violated for %s vs %s", teamID, g.Opponent)
		}
	}
}

// An opponent whose entire schedule was head-to-head games contributes 0
// rather than dividing by zero.
func TestComputeRPI_ExclusionLeavesEmptyRecord(t *testing.T) {
	matches := []*models.Match{
		testMatch("m1", "A", "B", 1, 0),
	}
	records, err := AggregateRecords(matches, testTeams("A", "B"))
	require.NoError(t, err)

	results, err := ComputeRPI(records)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byTeam := make(map[string]models.RPIResult)
	for _, r := range results {
		byTeam[r.TeamID] = r
	}
	assert.Equal(t, 0.0, byTeam["A"].OWP)
	assert.Equal(t, 0.0, byTeam["B"].OWP)
}
