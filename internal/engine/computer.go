package engine

import (
	"math"
	"sort"

	"ncaasoccer_etl/rpi/internal/errs"
	"ncaasoccer_etl/rpi/internal/models"
)

// RPI component weights: 25% own record, 50% opponents, 25% opponents'
// opponents.
const (
	weightWP   = 0.25
	weightOWP  = 0.50
	weightOOWP = 0.25
)

// ComputeRPI runs the three-pass RPI computation over a fully aggregated
// record graph and returns the ranked results, best team first.
//
// Pass 1 computes every team's win percentage, pass 2 every team's opponents'
// win percentage with the head-to-head exclusion, pass 3 averages opponents'
// OWP with no exclusion at the third hop. OWP and OOWP both average over the
// full game list, so an opponent met twice contributes twice.
//
// Teams with no games are computed for graph completeness but excluded from
// the ranked output. A record whose game list references a team absent from
// the input is a DataError; a phantom 0.5 contribution is never substituted.
func ComputeRPI(records map[string]*models.TeamRecord) ([]models.RPIResult, error) {
	ids := sortedTeamIDs(records)

	for _, id := range ids {
		for _, opponent := range records[id].Opponents() {
			if _, ok := records[opponent]; !ok {
				return nil, errs.NewDataError("team %s has game against %s which is absent from the record set", id, opponent)
			}
		}
	}

	wp := make(map[string]float64, len(records))
	for _, id := range ids {
		wp[id] = winPercentage(records[id])
	}

	owp := make(map[string]float64, len(records))
	for _, id := range ids {
		owp[id] = opponentsWinPercentage(records, records[id])
	}

	oowp := make(map[string]float64, len(records))
	for _, id := range ids {
		oowp[id] = opponentsOpponentsWinPercentage(owp, records[id])
	}

	type scored struct {
		id  string
		rpi float64
	}

	eligible := make([]scored, 0, len(ids))
	for _, id := range ids {
		if records[id].TotalGames() == 0 {
			continue
		}
		rpi := weightWP*wp[id] + weightOWP*owp[id] + weightOOWP*oowp[id]
		eligible = append(eligible, scored{id: id, rpi: rpi})
	}

	// Rank at full precision: RPI descending, then WP descending, then
	// team id ascending. Every team gets a distinct sequential rank.
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].rpi != eligible[j].rpi {
			return eligible[i].rpi > eligible[j].rpi
		}
		if wp[eligible[i].id] != wp[eligible[j].id] {
			return wp[eligible[i].id] > wp[eligible[j].id]
		}
		return eligible[i].id < eligible[j].id
	})

	results := make([]models.RPIResult, 0, len(eligible))
	for i, s := range eligible {
		rec := records[s.id]
		results = append(results, models.RPIResult{
			TeamID:        s.id,
			Rank:          i + 1,
			RPI:           round4(s.rpi),
			WP:            wp[s.id],
			OWP:           owp[s.id],
			OOWP:          oowp[s.id],
			Wins:          rec.Wins,
			Losses:        rec.Losses,
			Ties:          rec.Ties,
			TotalGames:    rec.TotalGames(),
			WinPercentage: round4(wp[s.id]),
		})
	}

	return results, nil
}

// winPercentage is (wins + 0.5*ties) / games, 0 for a team with no games.
func winPercentage(rec *models.TeamRecord) float64 {
	total := rec.TotalGames()
	if total == 0 {
		return 0
	}
	return (float64(rec.Wins) + 0.5*float64(rec.Ties)) / float64(total)
}

// opponentsWinPercentage averages, over every game the team played, the
// opponent's win percentage with all head-to-head games between the two
// removed. Without the exclusion a team would inflate its own schedule
// strength through the games it won or lost itself.
func opponentsWinPercentage(records map[string]*models.TeamRecord, rec *models.TeamRecord) float64 {
	if len(rec.Games) == 0 {
		return 0
	}

	sum := 0.0
	for _, g := range rec.Games {
		sum += excludedWinPercentage(records[g.Opponent], rec.TeamID)
	}
	return sum / float64(len(rec.Games))
}

// excludedWinPercentage is the opponent's win percentage with its games
// against exclude removed. An opponent whose only games were against exclude
// contributes 0, matching the zero-game rule.
func excludedWinPercentage(opponent *models.TeamRecord, exclude string) float64 {
	winsVs, lossesVs, tiesVs := opponent.RecordVersus(exclude)

	wins := opponent.Wins - winsVs
	ties := opponent.Ties - tiesVs
	total := opponent.TotalGames() - winsVs - lossesVs - tiesVs
	if total == 0 {
		return 0
	}
	return (float64(wins) + 0.5*float64(ties)) / float64(total)
}

// opponentsOpponentsWinPercentage averages the OWP of every opponent in the
// team's schedule, per occurrence. No exclusion is applied at this third hop,
// matching the behavior the rest of the pipeline was validated against;
// canonical NCAA formulations differ here.
func opponentsOpponentsWinPercentage(owp map[string]float64, rec *models.TeamRecord) float64 {
	if len(rec.Games) == 0 {
		return 0
	}

	sum := 0.0
	for _, g := range rec.Games {
		sum += owp[g.Opponent]
	}
	return sum / float64(len(rec.Games))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
