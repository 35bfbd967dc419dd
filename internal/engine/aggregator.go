// Package engine holds the pure calculation pipeline: match aggregation,
// the three-pass RPI computation and the conference rollup. Everything here
// is deterministic; given identical input the output is byte identical.
package engine

import (
	"sort"

	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/models"
)

// AggregateRecords folds completed matches into per-team win/loss/tie records.
// Ties increment the tie counter only; their 0.5 weight is applied later in
// the win-percentage formula. Opponents are appended once per meeting, so a
// repeated regular-season matchup counts each occurrence.
//
// known is the team directory; a match referencing a team id outside it is a
// DataError, as is a match with a non-terminal status or missing scores.
func AggregateRecords(matches []*models.Match, known map[string]*models.Team) (map[string]*models.TeamRecord, error) {
	records := make(map[string]*models.TeamRecord)

	for _, m := range matches {
		if !m.IsCompleted() {
			return nil, errs.NewDataError("match %s has non-terminal status %q", m.MatchID, m.Status)
		}
		if m.HomeScore == nil || m.AwayScore == nil {
			return nil, errs.NewDataError("completed match %s is missing scores", m.MatchID)
		}
		if _, ok := known[m.HomeTeam]; !ok {
			return nil, errs.NewDataError("match %s references unknown team %q", m.MatchID, m.HomeTeam)
		}
		if _, ok := known[m.AwayTeam]; !ok {
			return nil, errs.NewDataError("match %s references unknown team %q", m.MatchID, m.AwayTeam)
		}

		home := recordFor(records, m.HomeTeam)
		away := recordFor(records, m.AwayTeam)

		switch {
		case m.IsTie():
			home.Ties++
			away.Ties++
			home.Games = append(home.Games, models.GameRef{Opponent: m.AwayTeam, Outcome: models.OutcomeTie})
			away.Games = append(away.Games, models.GameRef{Opponent: m.HomeTeam, Outcome: models.OutcomeTie})
		case *m.HomeScore > *m.AwayScore:
			home.Wins++
			away.Losses++
			home.Games = append(home.Games, models.GameRef{Opponent: m.AwayTeam, Outcome: models.OutcomeWin})
			away.Games = append(away.Games, models.GameRef{Opponent: m.HomeTeam, Outcome: models.OutcomeLoss})
		default:
			away.Wins++
			home.Losses++
			away.Games = append(away.Games, models.GameRef{Opponent: m.HomeTeam, Outcome: models.OutcomeWin})
			home.Games = append(home.Games, models.GameRef{Opponent: m.AwayTeam, Outcome: models.OutcomeLoss})
		}
	}

	return records, nil
}

func recordFor(records map[string]*models.TeamRecord, teamID string) *models.TeamRecord {
	rec, ok := records[teamID]
	if !ok {
		rec = &models.TeamRecord{TeamID: teamID}
		records[teamID] = rec
	}
	return rec
}

// sortedTeamIDs returns the record keys in ascending order so that every
// pass over the record graph iterates deterministically.
func sortedTeamIDs(records map[string]*models.TeamRecord) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
